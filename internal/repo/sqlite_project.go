package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Amplicore/internal/domain"
)

// CreateProject создаёт проект и его шаги одной транзакцией.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *domain.Project, steps []domain.PipelineStep) error {
	metadataJSON, err := marshalMap(p.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO projects (id, name, description, working_dir, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Description, p.WorkingDir, string(metadataJSON), formatTime(p.CreatedAt),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert project: %w", err)
	}

	if err := insertStepsSQLite(ctx, tx, steps); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetProject возвращает проект по ID.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, working_dir, metadata, created_at FROM projects WHERE id = ?", id,
	)
	p, err := scanProjectSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListProjects возвращает все проекты, новые первыми.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, working_dir, metadata, created_at FROM projects ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProjectSQLite(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProjectMetadata заменяет метаданные проекта.
func (s *SQLiteStore) UpdateProjectMetadata(ctx context.Context, id string, metadata map[string]any) error {
	metadataJSON, err := marshalMap(metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE projects SET metadata = ? WHERE id = ?", string(metadataJSON), id)
	if err != nil {
		return fmt.Errorf("update project metadata: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProjectSQLite(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var metadataJSON, createdAt string

	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.WorkingDir, &metadataJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if err := unmarshalInto([]byte(metadataJSON), &p.Metadata, "metadata"); err != nil {
		return nil, err
	}
	return &p, nil
}

// isSQLiteConstraint распознаёт нарушение PRIMARY KEY или UNIQUE.
func isSQLiteConstraint(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
