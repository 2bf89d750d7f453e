package pipeline

import (
	"context"
	"log/slog"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/engine"
	"github.com/shaiso/Amplicore/internal/repo"
)

// Catalog — часть каталога инструментов, нужная pipeline.
type Catalog interface {
	Get(name string) (*domain.ToolSpec, bool)
	PipelineOrder() []string
	OptionalSteps() []string
}

// Pipeline читает состояние шагов проекта и разрешает их входы.
type Pipeline struct {
	store   repo.Store
	catalog Catalog
	rules   *engine.RuleSet
	logger  *slog.Logger
}

// Config — конфигурация Pipeline.
type Config struct {
	Store   repo.Store
	Catalog Catalog

	// Rules по умолчанию строится из engine.DefaultFlowRules.
	Rules *engine.RuleSet

	Logger *slog.Logger
}

// New создаёт Pipeline.
func New(cfg Config) *Pipeline {
	rules := cfg.Rules
	if rules == nil {
		rules = engine.NewRuleSet(engine.DefaultFlowRules, nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		store:   cfg.Store,
		catalog: cfg.Catalog,
		rules:   rules,
		logger:  logger.With("component", "pipeline"),
	}
}

// ResolveInputs возвращает входы шага step, которые можно заполнить
// выходами завершённых jobs проекта. Для неизвестного шага карта пуста.
func (p *Pipeline) ResolveInputs(ctx context.Context, projectID, step string) (map[string]string, error) {
	if _, err := p.store.GetProject(ctx, projectID); err != nil {
		return nil, storeError("get project", projectID, err)
	}

	tool, ok := p.catalog.Get(step)
	if !ok {
		return map[string]string{}, nil
	}

	jobs, err := p.store.ListJobs(ctx, repo.JobFilter{
		ProjectID: projectID,
		Status:    domain.JobStatusCompleted,
	})
	if err != nil {
		return nil, domain.UnavailableError("list completed jobs", err)
	}

	resolved := engine.ResolveInputs(tool, jobs, p.rules)
	p.logger.Debug("inputs resolved",
		"project_id", projectID,
		"step", step,
		"resolved", len(resolved),
	)
	return resolved, nil
}

// Summary — состояние pipeline проекта.
type Summary struct {
	ProjectID string                `json:"project_id"`
	Steps     []domain.PipelineStep `json:"steps"`
	Completed int                   `json:"completed_count"`
	Failed    int                   `json:"failed_count"`
	Running   int                   `json:"running_count"`
	Pending   int                   `json:"pending_count"`
	Total     int                   `json:"total_count"`

	// NextStep пуст, когда все обязательные шаги выполнены.
	NextStep string `json:"next_step,omitempty"`
}

// Status возвращает шаги проекта со счётчиками и следующим шагом.
func (p *Pipeline) Status(ctx context.Context, projectID string) (*Summary, error) {
	if _, err := p.store.GetProject(ctx, projectID); err != nil {
		return nil, storeError("get project", projectID, err)
	}

	steps, err := p.store.ListSteps(ctx, projectID)
	if err != nil {
		return nil, domain.UnavailableError("list steps", err)
	}
	return summarize(projectID, steps, p.catalog.PipelineOrder()), nil
}

func summarize(projectID string, steps []domain.PipelineStep, order []string) *Summary {
	s := &Summary{
		ProjectID: projectID,
		Steps:     steps,
		Total:     len(steps),
		NextStep:  NextStep(steps, order),
	}
	if s.Steps == nil {
		s.Steps = []domain.PipelineStep{}
	}
	for _, st := range steps {
		switch st.Status {
		case domain.StepStatusCompleted:
			s.Completed++
		case domain.StepStatusFailed:
			s.Failed++
		case domain.StepStatusRunning:
			s.Running++
		case domain.StepStatusPending:
			s.Pending++
		}
	}
	return s
}

// NextStep возвращает первый обязательный шаг в порядке order, который
// не выполнен и не выполняется. Шаги проекта без записи считаются pending.
func NextStep(steps []domain.PipelineStep, order []string) string {
	status := make(map[string]domain.StepStatus, len(steps))
	for _, st := range steps {
		status[st.Name] = st.Status
	}
	for _, name := range order {
		switch status[name] {
		case domain.StepStatusCompleted, domain.StepStatusRunning:
			continue
		}
		return name
	}
	return ""
}
