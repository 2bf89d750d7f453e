package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/catalog"
	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/orchestrator"
	"github.com/shaiso/Amplicore/internal/pipeline"
	"github.com/shaiso/Amplicore/internal/repo"
	"github.com/shaiso/Amplicore/internal/telemetry"
)

const (
	resultsTailLines = 50
	defaultLogTail   = 100
	maxProjectIDTry  = 3
)

// JobLauncher запускает и отменяет jobs. Реализуется orchestrator.Launcher.
type JobLauncher interface {
	Submit(ctx context.Context, req orchestrator.SubmitRequest) (*domain.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service — фасад операций над проектами, jobs и каталогом.
type Service struct {
	store    repo.Store
	catalog  *catalog.Catalog
	launcher JobLauncher
	pipeline *pipeline.Pipeline

	workspaceRoot string
	now           func() time.Time

	logger *slog.Logger
}

// Config — конфигурация Service.
type Config struct {
	Store    repo.Store
	Catalog  *catalog.Catalog
	Launcher JobLauncher
	Pipeline *pipeline.Pipeline

	// WorkspaceRoot — корень рабочих директорий проектов.
	WorkspaceRoot string

	Logger *slog.Logger
}

// New создаёт Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:         cfg.Store,
		catalog:       cfg.Catalog,
		launcher:      cfg.Launcher,
		pipeline:      cfg.Pipeline,
		workspaceRoot: cfg.WorkspaceRoot,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger.With("component", "service"),
	}
}

// CreateProjectRequest — запрос на создание проекта.
type CreateProjectRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	WorkingDir  string         `json:"working_dir,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CreateProject создаёт проект, его рабочую директорию и все шаги pipeline.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*ProjectDetail, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidArgument)
	}

	var err error
	for range maxProjectIDTry {
		p := &domain.Project{
			ID:          domain.NewProjectID(),
			Name:        name,
			Description: req.Description,
			WorkingDir:  req.WorkingDir,
			Metadata:    req.Metadata,
			CreatedAt:   s.now(),
		}
		if p.WorkingDir == "" {
			p.WorkingDir = filepath.Join(s.workspaceRoot, p.ID)
		}
		if p.WorkingDir, err = filepath.Abs(p.WorkingDir); err != nil {
			return nil, fmt.Errorf("working dir: %w", err)
		}
		if err := os.MkdirAll(p.WorkingDir, 0o755); err != nil {
			return nil, fmt.Errorf("create working dir: %w", err)
		}

		steps := domain.NewPipelineSteps(p.ID, s.catalog.Steps())
		err = s.store.CreateProject(ctx, p, steps)
		if errors.Is(err, repo.ErrAlreadyExists) {
			telemetry.Logger(ctx, s.logger).Warn("project id collision, retrying", "project_id", p.ID)
			continue
		}
		if err != nil {
			return nil, domain.UnavailableError("create project", err)
		}

		telemetry.Logger(ctx, s.logger).Info("project created",
			"project_id", p.ID,
			"name", p.Name,
			"steps", len(steps),
		)
		return &ProjectDetail{ProjectView: projectView(p, steps), Steps: steps}, nil
	}
	return nil, domain.UnavailableError("create project", err)
}

// ListProjects возвращает все проекты со счётчиками шагов.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectView, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, domain.UnavailableError("list projects", err)
	}

	views := make([]ProjectView, 0, len(projects))
	for i := range projects {
		steps, err := s.store.ListSteps(ctx, projects[i].ID)
		if err != nil {
			return nil, domain.UnavailableError("list steps", err)
		}
		views = append(views, projectView(&projects[i], steps))
	}
	return views, nil
}

// GetProject возвращает проект и его шаги.
func (s *Service) GetProject(ctx context.Context, id string) (*ProjectDetail, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, projectError("get project", id, err)
	}

	steps, err := s.store.ListSteps(ctx, id)
	if err != nil {
		return nil, domain.UnavailableError("list steps", err)
	}
	return &ProjectDetail{ProjectView: projectView(p, steps), Steps: steps}, nil
}

// UpdateProjectMetadata заменяет метаданные проекта.
func (s *Service) UpdateProjectMetadata(ctx context.Context, id string, metadata map[string]any) (*ProjectDetail, error) {
	if err := s.store.UpdateProjectMetadata(ctx, id, metadata); err != nil {
		return nil, projectError("update project metadata", id, err)
	}
	return s.GetProject(ctx, id)
}

// SubmitJobRequest — запрос на запуск инструмента.
type SubmitJobRequest struct {
	Tool      string         `json:"tool_name"`
	Params    map[string]any `json:"params"`
	ProjectID string         `json:"project_id,omitempty"`
}

// SubmitJob запускает инструмент как фоновый job.
func (s *Service) SubmitJob(ctx context.Context, req SubmitJobRequest) (*JobView, error) {
	job, err := s.launcher.Submit(ctx, orchestrator.SubmitRequest{
		Tool:      req.Tool,
		Params:    req.Params,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		return nil, err
	}

	v := jobView(job, s.now())
	return &v, nil
}

// SubmitStepRequest — запрос на запуск шага pipeline.
type SubmitStepRequest struct {
	ProjectID string         `json:"project_id"`
	Step      string         `json:"step_name"`
	Params    map[string]any `json:"params"`

	// AutoResolve заполняет входы из выходов завершённых шагов.
	AutoResolve bool `json:"auto_resolve_inputs"`
}

// SubmitStep запускает шаг pipeline. Явные параметры важнее найденных входов.
func (s *Service) SubmitStep(ctx context.Context, req SubmitStepRequest) (*StepSubmission, error) {
	if _, err := s.store.GetProject(ctx, req.ProjectID); err != nil {
		return nil, projectError("get project", req.ProjectID, err)
	}
	if _, ok := s.catalog.Get(req.Step); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, req.Step)
	}

	resolved := map[string]string{}
	if req.AutoResolve {
		var err error
		if resolved, err = s.pipeline.ResolveInputs(ctx, req.ProjectID, req.Step); err != nil {
			return nil, err
		}
	}

	params := make(map[string]any, len(resolved)+len(req.Params))
	for k, v := range resolved {
		params[k] = v
	}
	for k, v := range req.Params {
		params[k] = v
	}

	job, err := s.launcher.Submit(ctx, orchestrator.SubmitRequest{
		Tool:      req.Step,
		Params:    params,
		ProjectID: req.ProjectID,
		StepName:  req.Step,
	})
	if err != nil {
		return nil, err
	}

	return &StepSubmission{JobView: jobView(job, s.now()), ResolvedInputs: resolved}, nil
}

// JobStatus возвращает состояние job.
func (s *Service) JobStatus(ctx context.Context, id string) (*JobView, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}
	v := jobView(job, s.now())
	return &v, nil
}

// JobResults возвращает выходы job и хвост лога (или stderr).
func (s *Service) JobResults(ctx context.Context, id string) (*JobResults, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}

	logPath := job.LogPath
	if !isFile(logPath) {
		logPath = job.StderrPath
	}
	tail, err := readTail(logPath, resultsTailLines)
	if err != nil {
		s.logger.Warn("failed to read job log", "job_id", job.ID, "path", logPath, "error", err)
	}

	outputs := job.Outputs
	if outputs == nil {
		outputs = map[string]string{}
	}
	return &JobResults{
		JobID:       job.ID,
		Status:      job.Status,
		ExitCode:    job.ExitCode,
		OutputFiles: outputs,
		LogTail:     tail,
		WorkingDir:  job.WorkingDir,
	}, nil
}

// JobQuery — фильтры списка jobs.
type JobQuery struct {
	ProjectID string
	Status    domain.JobStatus
	Limit     int
}

// ListJobs возвращает jobs, новые первыми.
func (s *Service) ListJobs(ctx context.Context, q JobQuery) ([]JobView, error) {
	if q.Status != "" && !q.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, q.Status)
	}

	jobs, err := s.store.ListJobs(ctx, repo.JobFilter{
		ProjectID: q.ProjectID,
		Status:    q.Status,
		Limit:     q.Limit,
	})
	if err != nil {
		return nil, domain.UnavailableError("list jobs", err)
	}

	now := s.now()
	views := make([]JobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, jobView(&jobs[i], now))
	}
	return views, nil
}

// CancelJob отправляет SIGTERM процессу job.
func (s *Service) CancelJob(ctx context.Context, id string) (*CancelResult, error) {
	jobID, err := parseJobID(id)
	if err != nil {
		return nil, err
	}

	sent, err := s.launcher.Cancel(ctx, jobID)
	if err != nil {
		return nil, err
	}

	res := &CancelResult{JobID: jobID, Cancelled: sent, Message: "SIGTERM sent."}
	if !sent {
		res.Message = "Process not found (may have already finished)."
	}
	return res, nil
}

// ListTools возвращает инструменты каталога; category фильтрует без учёта регистра.
func (s *Service) ListTools(category string) []ToolSummary {
	tools := s.catalog.List(category)
	out := make([]ToolSummary, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToolSummary{
			Name:         t.Name,
			Description:  t.Description,
			Category:     t.Category,
			PipelineStep: t.PipelineStep,
			Optional:     t.Optional,
			ScriptPath:   t.ScriptPath,
		})
	}
	return out
}

// ToolHelp возвращает полную спецификацию инструмента.
func (s *Service) ToolHelp(name string) (*domain.ToolSpec, error) {
	tool, ok := s.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	return tool, nil
}

// ToolNames возвращает имена всех инструментов.
func (s *Service) ToolNames() []string {
	return s.catalog.Names()
}

// ResolveInputs возвращает входы шага, найденные среди выходов проекта.
func (s *Service) ResolveInputs(ctx context.Context, projectID, step string) (map[string]string, error) {
	return s.pipeline.ResolveInputs(ctx, projectID, step)
}

// PipelineStatus возвращает состояние pipeline проекта.
func (s *Service) PipelineStatus(ctx context.Context, projectID string) (*PipelineStatus, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, projectError("get project", projectID, err)
	}

	summary, err := s.pipeline.Status(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PipelineStatus{Summary: summary, ProjectName: p.Name}, nil
}

// Recommendations возвращает рекомендацию следующего шага.
func (s *Service) Recommendations(ctx context.Context, projectID string) (*pipeline.Recommendation, error) {
	return s.pipeline.Recommend(ctx, projectID)
}

func (s *Service) getJob(ctx context.Context, id string) (*domain.Job, error) {
	jobID, err := parseJobID(id)
	if err != nil {
		return nil, err
	}

	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, domain.UnavailableError("get job", err)
	}
	return job, nil
}

func projectError(op, id string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
	}
	return domain.UnavailableError(op, err)
}
