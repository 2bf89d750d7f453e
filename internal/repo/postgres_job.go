package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Amplicore/internal/domain"
)

const pgJobColumns = `
	id, project_id, tool_name, step_name, params, command, status, pid,
	started_at, finished_at, exit_code, stdout_path, stderr_path, log_path,
	outputs, working_dir, created_at
`

// InsertJob сохраняет новый job.
func (s *PGStore) InsertJob(ctx context.Context, job *domain.Job) error {
	paramsJSON, err := marshalMap(job.Params)
	if err != nil {
		return err
	}
	commandJSON, err := marshalList(job.Command)
	if err != nil {
		return err
	}
	outputsJSON, err := marshalMap(job.Outputs)
	if err != nil {
		return err
	}

	query := `INSERT INTO jobs (` + pgJobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = s.pool.Exec(ctx, query,
		job.ID,
		nullString(job.ProjectID),
		job.ToolName,
		nullString(job.StepName),
		paramsJSON,
		commandJSON,
		job.Status,
		job.PID,
		job.StartedAt,
		job.FinishedAt,
		job.ExitCode,
		job.StdoutPath,
		job.StderrPath,
		job.LogPath,
		outputsJSON,
		job.WorkingDir,
		job.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob возвращает job по ID.
func (s *PGStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + pgJobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJobPG(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs возвращает jobs с фильтрацией, новые первыми.
func (s *PGStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + pgJobColumns + ` FROM jobs
		WHERE ($1::text IS NULL OR project_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := s.pool.Query(ctx, query,
		nullString(filter.ProjectID),
		nullString(string(filter.Status)),
		nullInt(filter.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJobPG(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// FinishJob переводит job из running в финальный статус.
func (s *PGStore) FinishJob(ctx context.Context, id uuid.UUID, update JobFinish) error {
	query := `
		UPDATE jobs
		SET status = $2, exit_code = $3, finished_at = $4
		WHERE id = $1 AND status = 'running'
	`
	result, err := s.pool.Exec(ctx, query, id, update.Status, update.ExitCode, update.FinishedAt)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: job %s is not running", ErrInvalidState, id)
}

// UpdateJobOutputs заменяет карту выходов job.
func (s *PGStore) UpdateJobOutputs(ctx context.Context, id uuid.UUID, outputs map[string]string) error {
	outputsJSON, err := marshalMap(outputs)
	if err != nil {
		return err
	}

	result, err := s.pool.Exec(ctx, `UPDATE jobs SET outputs = $2 WHERE id = $1`, id, outputsJSON)
	if err != nil {
		return fmt.Errorf("update job outputs: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanJobPG сканирует одну строку в Job.
func scanJobPG(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var projectID, stepName *string
	var paramsJSON, commandJSON, outputsJSON []byte

	err := row.Scan(
		&job.ID,
		&projectID,
		&job.ToolName,
		&stepName,
		&paramsJSON,
		&commandJSON,
		&job.Status,
		&job.PID,
		&job.StartedAt,
		&job.FinishedAt,
		&job.ExitCode,
		&job.StdoutPath,
		&job.StderrPath,
		&job.LogPath,
		&outputsJSON,
		&job.WorkingDir,
		&job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.ProjectID = derefString(projectID)
	job.StepName = derefString(stepName)

	if err := unmarshalInto(paramsJSON, &job.Params, "params"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(commandJSON, &job.Command, "command"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(outputsJSON, &job.Outputs, "outputs"); err != nil {
		return nil, err
	}
	return &job, nil
}
