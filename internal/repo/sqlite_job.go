package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Amplicore/internal/domain"
)

const sqliteJobColumns = `id, project_id, tool_name, step_name, params, command, status, pid,
	started_at, finished_at, exit_code, stdout_path, stderr_path, log_path,
	outputs, working_dir, created_at`

// InsertJob сохраняет новый job.
func (s *SQLiteStore) InsertJob(ctx context.Context, job *domain.Job) error {
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

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO jobs ("+sqliteJobColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		job.ID.String(),
		nullString(job.ProjectID),
		job.ToolName,
		nullString(job.StepName),
		string(paramsJSON),
		string(commandJSON),
		string(job.Status),
		job.PID,
		formatTime(job.StartedAt),
		formatTimePtr(job.FinishedAt),
		job.ExitCode,
		job.StdoutPath,
		job.StderrPath,
		job.LogPath,
		string(outputsJSON),
		job.WorkingDir,
		formatTime(job.CreatedAt),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob возвращает job по ID.
func (s *SQLiteStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteJobColumns+" FROM jobs WHERE id = ?", id.String())
	job, err := scanJobSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs возвращает jobs с фильтрацией, новые первыми.
func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	var where []string
	var args []any
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + sqliteJobColumns + " FROM jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJobSQLite(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// FinishJob переводит job из running в финальный статус.
func (s *SQLiteStore) FinishJob(ctx context.Context, id uuid.UUID, update JobFinish) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, exit_code = ?, finished_at = ? WHERE id = ? AND status = 'running'",
		string(update.Status), update.ExitCode, formatTime(update.FinishedAt), id.String(),
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM jobs WHERE id = ?)", id.String()).Scan(&exists); err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: job %s is not running", ErrInvalidState, id)
}

// UpdateJobOutputs заменяет карту выходов job.
func (s *SQLiteStore) UpdateJobOutputs(ctx context.Context, id uuid.UUID, outputs map[string]string) error {
	outputsJSON, err := marshalMap(outputs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE jobs SET outputs = ? WHERE id = ?", string(outputsJSON), id.String())
	if err != nil {
		return fmt.Errorf("update job outputs: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanJobSQLite(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var id, status, startedAt, createdAt string
	var projectID, stepName, finishedAt sql.NullString
	var pid, exitCode sql.NullInt64
	var paramsJSON, commandJSON, outputsJSON string

	err := row.Scan(
		&id,
		&projectID,
		&job.ToolName,
		&stepName,
		&paramsJSON,
		&commandJSON,
		&status,
		&pid,
		&startedAt,
		&finishedAt,
		&exitCode,
		&job.StdoutPath,
		&job.StderrPath,
		&job.LogPath,
		&outputsJSON,
		&job.WorkingDir,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job.ProjectID = projectID.String
	job.StepName = stepName.String
	job.Status = domain.JobStatus(status)
	job.PID = intPtrFromNull(pid)
	job.ExitCode = intPtrFromNull(exitCode)

	if job.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if job.FinishedAt, err = parseTimePtr(finishedAt); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if err := unmarshalInto([]byte(paramsJSON), &job.Params, "params"); err != nil {
		return nil, err
	}
	if err := unmarshalInto([]byte(commandJSON), &job.Command, "command"); err != nil {
		return nil, err
	}
	if err := unmarshalInto([]byte(outputsJSON), &job.Outputs, "outputs"); err != nil {
		return nil, err
	}
	return &job, nil
}
