package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Amplicore/internal/domain"
)

// ProjectRepo хранит проекты.
type ProjectRepo interface {
	// CreateProject создаёт проект и его шаги одной транзакцией.
	CreateProject(ctx context.Context, p *domain.Project, steps []domain.PipelineStep) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	UpdateProjectMetadata(ctx context.Context, id string, metadata map[string]any) error
}

// JobRepo хранит jobs.
type JobRepo interface {
	InsertJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error)

	// FinishJob переводит job из running в финальный статус.
	// Возвращает ErrInvalidState, если job уже не running.
	FinishJob(ctx context.Context, id uuid.UUID, update JobFinish) error

	// UpdateJobOutputs заменяет карту выходов job.
	UpdateJobOutputs(ctx context.Context, id uuid.UUID, outputs map[string]string) error
}

// StepRepo хранит шаги pipeline.
type StepRepo interface {
	// InitSteps добавляет шаги проекта; существующие записи не меняются.
	InitSteps(ctx context.Context, steps []domain.PipelineStep) error

	// UpdateStep меняет статус шага и связанный job.
	UpdateStep(ctx context.Context, projectID, step string, status domain.StepStatus, jobID *uuid.UUID) error

	// ListSteps возвращает шаги проекта по порядку вместе с данными связанных jobs.
	ListSteps(ctx context.Context, projectID string) ([]domain.PipelineStep, error)
}

// Store объединяет все репозитории одного хранилища.
type Store interface {
	ProjectRepo
	JobRepo
	StepRepo

	Ping(ctx context.Context) error
	Close() error
}

// JobFilter задаёт фильтры списка jobs. Пустые поля не фильтруют.
type JobFilter struct {
	ProjectID string
	Status    domain.JobStatus
	Limit     int
}

// JobFinish описывает перевод job в финальный статус.
type JobFinish struct {
	Status     domain.JobStatus
	ExitCode   *int
	FinishedAt time.Time
}

// IntPtr возвращает указатель на значение.
func IntPtr(v int) *int {
	return &v
}
