package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options выбирает хранилище.
//
// Если задан DatabaseURL, используется PostgreSQL, иначе SQLite файл SQLitePath.
type Options struct {
	DatabaseURL string
	SQLitePath  string
}

// Open открывает хранилище и применяет схему.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.DatabaseURL != "" {
		pool, err := NewPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := NewPGStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	}

	if opts.SQLitePath == "" {
		return nil, fmt.Errorf("%w: neither DB_URL nor SQLITE_PATH set", ErrUnknownBackend)
	}
	return NewSQLiteStore(opts.SQLitePath)
}

// NewPool создаёт пул соединений PostgreSQL и проверяет доступность БД.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}
