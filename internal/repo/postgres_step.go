package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Amplicore/internal/domain"
)

// InitSteps добавляет шаги; существующие пары (проект, шаг) не меняются.
func (s *PGStore) InitSteps(ctx context.Context, steps []domain.PipelineStep) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertStepsPG(ctx, tx, steps); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateStep меняет статус шага и связанный job.
func (s *PGStore) UpdateStep(ctx context.Context, projectID, step string, status domain.StepStatus, jobID *uuid.UUID) error {
	query := `
		UPDATE pipeline_steps
		SET status = $3, job_id = COALESCE($4, job_id)
		WHERE project_id = $1 AND step_name = $2
	`
	result, err := s.pool.Exec(ctx, query, projectID, step, status, nullUUID(jobID))
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSteps возвращает шаги проекта вместе с данными связанных jobs.
func (s *PGStore) ListSteps(ctx context.Context, projectID string) ([]domain.PipelineStep, error) {
	query := `
		SELECT s.project_id, s.step_name, s.step_order, s.is_optional, s.status, s.job_id,
		       j.status, j.started_at, j.finished_at, j.exit_code
		FROM pipeline_steps s
		LEFT JOIN jobs j ON j.id = s.job_id
		WHERE s.project_id = $1
		ORDER BY s.step_order
	`
	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.PipelineStep
	for rows.Next() {
		var step domain.PipelineStep
		var jobStatus *string
		var startedAt, finishedAt *time.Time
		var exitCode *int

		err := rows.Scan(
			&step.ProjectID,
			&step.Name,
			&step.Order,
			&step.Optional,
			&step.Status,
			&step.JobID,
			&jobStatus,
			&startedAt,
			&finishedAt,
			&exitCode,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		if jobStatus != nil {
			step.Job = &domain.StepJobInfo{
				Status:     domain.JobStatus(*jobStatus),
				FinishedAt: finishedAt,
				ExitCode:   exitCode,
			}
			if startedAt != nil {
				step.Job.StartedAt = *startedAt
			}
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// insertStepsPG вставляет шаги внутри транзакции.
func insertStepsPG(ctx context.Context, tx pgx.Tx, steps []domain.PipelineStep) error {
	query := `
		INSERT INTO pipeline_steps (project_id, step_name, step_order, job_id, status, is_optional)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (project_id, step_name) DO NOTHING
	`
	for _, step := range steps {
		status := step.Status
		if status == "" {
			status = domain.StepStatusPending
		}
		_, err := tx.Exec(ctx, query,
			step.ProjectID,
			step.Name,
			step.Order,
			nullUUID(step.JobID),
			status,
			step.Optional,
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", step.Name, err)
		}
	}
	return nil
}
