package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Amplicore/internal/domain"
)

// CreateProject создаёт проект и его шаги одной транзакцией.
func (s *PGStore) CreateProject(ctx context.Context, p *domain.Project, steps []domain.PipelineStep) error {
	metadataJSON, err := marshalMap(p.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO projects (id, name, description, working_dir, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.WorkingDir,
		metadataJSON,
		p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert project: %w", err)
	}

	if err := insertStepsPG(ctx, tx, steps); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetProject возвращает проект по ID.
func (s *PGStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	query := `
		SELECT id, name, description, working_dir, metadata, created_at
		FROM projects
		WHERE id = $1
	`
	p, err := scanProjectPG(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListProjects возвращает все проекты, новые первыми.
func (s *PGStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	query := `
		SELECT id, name, description, working_dir, metadata, created_at
		FROM projects
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProjectPG(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProjectMetadata заменяет метаданные проекта.
func (s *PGStore) UpdateProjectMetadata(ctx context.Context, id string, metadata map[string]any) error {
	metadataJSON, err := marshalMap(metadata)
	if err != nil {
		return err
	}

	result, err := s.pool.Exec(ctx, `UPDATE projects SET metadata = $2 WHERE id = $1`, id, metadataJSON)
	if err != nil {
		return fmt.Errorf("update project metadata: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanProjectPG сканирует одну строку в Project.
func scanProjectPG(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	var metadataJSON []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.WorkingDir,
		&metadataJSON,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}

	if err := unmarshalInto(metadataJSON, &p.Metadata, "metadata"); err != nil {
		return nil, err
	}
	return &p, nil
}
