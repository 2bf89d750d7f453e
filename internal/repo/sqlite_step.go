package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Amplicore/internal/domain"
)

// InitSteps добавляет шаги; существующие пары (проект, шаг) не меняются.
func (s *SQLiteStore) InitSteps(ctx context.Context, steps []domain.PipelineStep) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertStepsSQLite(ctx, tx, steps); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateStep меняет статус шага и связанный job.
func (s *SQLiteStore) UpdateStep(ctx context.Context, projectID, step string, status domain.StepStatus, jobID *uuid.UUID) error {
	var job *string
	if id := nullUUID(jobID); id != nil {
		job = nullString(id.String())
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE pipeline_steps SET status = ?, job_id = COALESCE(?, job_id) WHERE project_id = ? AND step_name = ?",
		string(status), job, projectID, step,
	)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSteps возвращает шаги проекта вместе с данными связанных jobs.
func (s *SQLiteStore) ListSteps(ctx context.Context, projectID string) ([]domain.PipelineStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.project_id, s.step_name, s.step_order, s.is_optional, s.status, s.job_id,
		       j.status, j.started_at, j.finished_at, j.exit_code
		FROM pipeline_steps s
		LEFT JOIN jobs j ON j.id = s.job_id
		WHERE s.project_id = ?
		ORDER BY s.step_order`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.PipelineStep
	for rows.Next() {
		var step domain.PipelineStep
		var status string
		var optional bool
		var jobID, jobStatus, startedAt, finishedAt sql.NullString
		var exitCode sql.NullInt64

		err := rows.Scan(
			&step.ProjectID,
			&step.Name,
			&step.Order,
			&optional,
			&status,
			&jobID,
			&jobStatus,
			&startedAt,
			&finishedAt,
			&exitCode,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Optional = optional
		step.Status = domain.StepStatus(status)

		if jobID.Valid {
			id, err := uuid.Parse(jobID.String)
			if err != nil {
				return nil, fmt.Errorf("parse step job id: %w", err)
			}
			step.JobID = &id
		}
		if jobStatus.Valid {
			info := &domain.StepJobInfo{
				Status:   domain.JobStatus(jobStatus.String),
				ExitCode: intPtrFromNull(exitCode),
			}
			if startedAt.Valid {
				if info.StartedAt, err = parseTime(startedAt.String); err != nil {
					return nil, err
				}
			}
			if info.FinishedAt, err = parseTimePtr(finishedAt); err != nil {
				return nil, err
			}
			step.Job = info
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func insertStepsSQLite(ctx context.Context, tx *sql.Tx, steps []domain.PipelineStep) error {
	for _, step := range steps {
		status := step.Status
		if status == "" {
			status = domain.StepStatusPending
		}
		var jobID *string
		if id := nullUUID(step.JobID); id != nil {
			jobID = nullString(id.String())
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_steps (project_id, step_name, step_order, job_id, status, is_optional)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (project_id, step_name) DO NOTHING`,
			step.ProjectID, step.Name, step.Order, jobID, string(status), step.Optional,
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", step.Name, err)
		}
	}
	return nil
}
