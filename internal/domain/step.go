package domain

import (
	"time"

	"github.com/google/uuid"
)

// PipelineStep является записью о шаге pipeline внутри проекта.
//
// Пара (ProjectID, Name) уникальна. Order задаёт порядок для выбора
// следующего шага: сначала обязательные шаги, затем опциональные.
type PipelineStep struct {
	ProjectID string     `json:"project_id"`
	Name      string     `json:"step_name"`
	Order     int        `json:"step_order"`
	Optional  bool       `json:"is_optional"`
	Status    StepStatus `json:"status"`

	// JobID указывает на последний job этого шага.
	JobID *uuid.UUID `json:"job_id,omitempty"`

	// Job заполняется при чтении вместе с данными связанного job.
	Job *StepJobInfo `json:"job,omitempty"`
}

// StepJobInfo содержит данные job, присоединённые к шагу.
type StepJobInfo struct {
	Status     JobStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
}

// StepDef описывает шаг из каталога в момент создания проекта.
type StepDef struct {
	Name     string `json:"step_name"`
	Order    int    `json:"step_order"`
	Optional bool   `json:"is_optional"`
}

// NewPipelineSteps создаёт записи шагов проекта в статусе pending.
func NewPipelineSteps(projectID string, defs []StepDef) []PipelineStep {
	steps := make([]PipelineStep, len(defs))
	for i, d := range defs {
		steps[i] = PipelineStep{
			ProjectID: projectID,
			Name:      d.Name,
			Order:     d.Order,
			Optional:  d.Optional,
			Status:    StepStatusPending,
		}
	}
	return steps
}
