package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/engine"
	"github.com/shaiso/Amplicore/internal/process"
	"github.com/shaiso/Amplicore/internal/repo"
	"github.com/shaiso/Amplicore/internal/telemetry"
)

const (
	// StandaloneScope — директория jobs без проекта.
	StandaloneScope = "standalone"

	stdoutFile     = "stdout.txt"
	stderrFile     = "stderr.txt"
	defaultLogFile = "frogs.log"
	logOutputKey   = "log"

	// CancelExitCode — код выхода отменённого job (SIGTERM).
	CancelExitCode = -int(syscall.SIGTERM)
)

// ToolCatalog находит инструмент по имени. Реализуется catalog.Catalog.
type ToolCatalog interface {
	Get(name string) (*domain.ToolSpec, bool)
}

// SubmitRequest — запрос на запуск инструмента.
type SubmitRequest struct {
	Tool      string
	Params    map[string]any
	ProjectID string // пусто для standalone job
	StepName  string // пусто для запуска вне pipeline
}

// Launcher запускает и отменяет jobs.
type Launcher struct {
	catalog   ToolCatalog
	store     repo.Store
	runner    process.Runner
	monitor   *Monitor
	publisher EventPublisher

	workspaceRoot string
	env           []string
	command       engine.CommandOptions
	now           func() time.Time

	logger *slog.Logger
}

// LauncherConfig — конфигурация Launcher.
type LauncherConfig struct {
	Catalog   ToolCatalog
	Store     repo.Store
	Runner    process.Runner
	Monitor   *Monitor
	Publisher EventPublisher // может быть nil

	// WorkspaceRoot — корень директорий jobs.
	WorkspaceRoot string

	// Env — окружение процессов инструментов (см. process.ToolEnv).
	Env []string

	Command engine.CommandOptions

	Logger *slog.Logger
}

// NewLauncher создаёт Launcher.
func NewLauncher(cfg LauncherConfig) *Launcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Launcher{
		catalog:       cfg.Catalog,
		store:         cfg.Store,
		runner:        cfg.Runner,
		monitor:       cfg.Monitor,
		publisher:     cfg.Publisher,
		workspaceRoot: cfg.WorkspaceRoot,
		env:           cfg.Env,
		command:       cfg.Command,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger.With("component", "launcher"),
	}
}

// Submit проверяет параметры, запускает процесс и сохраняет job.
//
// Возвращается сразу после старта процесса. Ошибки валидации не создают
// ни записей, ни директорий.
func (l *Launcher) Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	if l.monitor == nil {
		return nil, ErrNoMonitor
	}
	if l.monitor.IsStopped() {
		return nil, ErrMonitorStopped
	}

	tool, ok := l.catalog.Get(req.Tool)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, req.Tool)
	}

	if err := ValidateParams(tool, req.Params); err != nil {
		return nil, err
	}

	if req.ProjectID != "" {
		if _, err := l.store.GetProject(ctx, req.ProjectID); err != nil {
			return nil, projectStoreError("get project", req.ProjectID, err)
		}
	}

	id := uuid.New()
	scope := req.ProjectID
	if scope == "" {
		scope = StandaloneScope
	}
	jobDir, err := filepath.Abs(filepath.Join(l.workspaceRoot, scope, id.String()))
	if err != nil {
		return nil, fmt.Errorf("job dir: %w", err)
	}

	cmd, err := engine.BuildCommand(tool, req.Params, jobDir, l.command)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}

	logPath, ok := cmd.Outputs[logOutputKey]
	if !ok {
		logPath = filepath.Join(jobDir, defaultLogFile)
	}

	spec := process.Spec{
		Args:   cmd.Args,
		Dir:    jobDir,
		Env:    l.env,
		Stdout: filepath.Join(jobDir, stdoutFile),
		Stderr: filepath.Join(jobDir, stderrFile),
	}
	handle, err := l.runner.Start(spec)
	if err != nil {
		os.RemoveAll(jobDir)
		return nil, fmt.Errorf("start %s: %w", tool.Name, err)
	}

	pid := handle.PID()
	now := l.now()
	job := &domain.Job{
		ID:         id,
		ProjectID:  req.ProjectID,
		ToolName:   tool.Name,
		StepName:   req.StepName,
		Params:     cmd.Params,
		Command:    cmd.Args,
		Status:     domain.JobStatusRunning,
		PID:        &pid,
		StartedAt:  now,
		StdoutPath: spec.Stdout,
		StderrPath: spec.Stderr,
		LogPath:    logPath,
		Outputs:    cmd.Outputs,
		WorkingDir: jobDir,
		CreatedAt:  now,
	}

	if err := l.store.InsertJob(ctx, job); err != nil {
		// Без записи job некому отслеживать, процесс останавливаем.
		if sigErr := l.runner.Signal(pid, syscall.SIGTERM); sigErr != nil {
			telemetry.Logger(ctx, l.logger).Warn("failed to stop untracked process", "pid", pid, "error", sigErr)
		}
		return nil, domain.UnavailableError("insert job", err)
	}

	l.monitor.Register(id, handle, req.ProjectID, req.StepName)
	markStep(ctx, l.store, l.logger, req.ProjectID, req.StepName, domain.StepStatusRunning, id)

	telemetry.JobsSubmitted.WithLabelValues(tool.Name).Inc()
	publishEvent(ctx, l.publisher, l.logger, job)

	log := telemetry.Logger(ctx, telemetry.JobLogger(l.logger, id.String(), tool.Name))
	log.Info("job submitted",
		"project_id", req.ProjectID,
		"step", req.StepName,
		"pid", pid,
	)
	return job, nil
}

// Cancel отправляет SIGTERM процессу job.
//
// Возвращает false без ошибки, если pid не записан, job уже завершён
// или процесса больше нет. Не ждёт фактического завершения процесса.
func (l *Launcher) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	job, err := l.store.GetJob(ctx, id)
	if err != nil {
		return false, jobStoreError("get job", id, err)
	}

	if job.PID == nil || job.Status.IsTerminal() {
		return false, nil
	}
	pid := *job.PID

	// До сигнала: выход по SIGTERM монитор фиксировать не должен.
	var lj *liveJob
	if l.monitor != nil {
		lj = l.monitor.release(id)
	}

	if err := l.runner.Signal(pid, syscall.SIGTERM); err != nil {
		if l.monitor != nil {
			l.monitor.restore(id, lj)
		}
		switch {
		case errors.Is(err, process.ErrNoSuchProcess):
			return false, nil
		case errors.Is(err, process.ErrPermission):
			return false, fmt.Errorf("%w: job %s: %w", domain.ErrSignalPermissionDenied, id, err)
		default:
			return false, fmt.Errorf("signal job %s: %w", id, err)
		}
	}

	exitCode := CancelExitCode
	err = l.store.FinishJob(ctx, id, repo.JobFinish{
		Status:     domain.JobStatusCancelled,
		ExitCode:   &exitCode,
		FinishedAt: l.now(),
	})
	if errors.Is(err, repo.ErrInvalidState) {
		// Монитор успел зафиксировать завершение раньше.
		return true, nil
	}
	if err != nil {
		return true, jobStoreError("cancel job", id, err)
	}

	job.Status = domain.JobStatusCancelled
	job.ExitCode = &exitCode
	markStep(ctx, l.store, l.logger, job.ProjectID, job.StepName, domain.StepStatusCancelled, id)

	telemetry.JobsFinished.WithLabelValues(string(domain.JobStatusCancelled)).Inc()
	publishEvent(ctx, l.publisher, l.logger, job)

	telemetry.Logger(ctx, telemetry.JobLogger(l.logger, id.String(), job.ToolName)).Info("job cancelled", "pid", pid)
	return true, nil
}

// ValidateParams проверяет обязательные и позиционный параметры.
// Все отсутствующие параметры возвращаются вместе.
func ValidateParams(tool *domain.ToolSpec, params map[string]any) error {
	var errs []error
	for _, p := range tool.Params {
		if !p.Required || p.Name == tool.Positional {
			continue
		}
		if missing(params, p.Name) {
			errs = append(errs, &domain.ParamError{
				Tool:  tool.Name,
				Param: p.Name,
				Flag:  p.Flag,
				Err:   domain.ErrMissingRequiredParameter,
			})
		}
	}
	if tool.Positional != "" && missing(params, tool.Positional) {
		errs = append(errs, &domain.ParamError{
			Tool:  tool.Name,
			Param: tool.Positional,
			Err:   domain.ErrMissingPositionalArgument,
		})
	}
	return errors.Join(errs...)
}

// missing считает отсутствующими ключ без значения, nil и пустую строку.
func missing(params map[string]any, name string) bool {
	v, ok := params[name]
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}
