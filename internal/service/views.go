package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/pipeline"
)

// ProjectView — проект со счётчиками шагов.
type ProjectView struct {
	ProjectID      string         `json:"project_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	WorkingDir     string         `json:"working_dir"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	StepsCompleted int            `json:"steps_completed"`
	StepsTotal     int            `json:"steps_total"`
}

// ProjectDetail — проект вместе с шагами pipeline.
type ProjectDetail struct {
	ProjectView
	Steps []domain.PipelineStep `json:"pipeline_steps"`
}

func projectView(p *domain.Project, steps []domain.PipelineStep) ProjectView {
	v := ProjectView{
		ProjectID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		WorkingDir:  p.WorkingDir,
		Metadata:    p.Metadata,
		CreatedAt:   p.CreatedAt,
		StepsTotal:  len(steps),
	}
	for _, s := range steps {
		if s.Status == domain.StepStatusCompleted {
			v.StepsCompleted++
		}
	}
	return v
}

// JobView — краткое состояние job.
type JobView struct {
	JobID          uuid.UUID        `json:"job_id"`
	ToolName       string           `json:"tool_name"`
	StepName       string           `json:"step_name,omitempty"`
	ProjectID      string           `json:"project_id,omitempty"`
	Status         domain.JobStatus `json:"status"`
	PID            *int             `json:"pid,omitempty"`
	ElapsedSeconds *float64         `json:"elapsed_seconds"`
	ExitCode       *int             `json:"exit_code"`
	WorkingDir     string           `json:"working_dir"`
	Command        []string         `json:"command,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func jobView(j *domain.Job, now time.Time) JobView {
	v := JobView{
		JobID:      j.ID,
		ToolName:   j.ToolName,
		StepName:   j.StepName,
		ProjectID:  j.ProjectID,
		Status:     j.Status,
		PID:        j.PID,
		ExitCode:   j.ExitCode,
		WorkingDir: j.WorkingDir,
		Command:    j.Command,
		CreatedAt:  j.CreatedAt,
	}
	if !j.StartedAt.IsZero() {
		secs := j.Elapsed(now).Seconds()
		v.ElapsedSeconds = &secs
	}
	return v
}

// StepSubmission — результат запуска шага pipeline.
type StepSubmission struct {
	JobView
	ResolvedInputs map[string]string `json:"resolved_inputs"`
}

// JobResults — выходы job и хвост его лога.
type JobResults struct {
	JobID       uuid.UUID         `json:"job_id"`
	Status      domain.JobStatus  `json:"status"`
	ExitCode    *int              `json:"exit_code"`
	OutputFiles map[string]string `json:"output_files"`
	LogTail     string            `json:"log_tail"`
	WorkingDir  string            `json:"working_dir"`
}

// CancelResult — результат отмены.
type CancelResult struct {
	JobID     uuid.UUID `json:"job_id"`
	Cancelled bool      `json:"cancelled"`
	Message   string    `json:"message"`
}

// ToolSummary — строка списка инструментов.
type ToolSummary struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	PipelineStep string `json:"pipeline_step"`
	Optional     bool   `json:"is_optional"`
	ScriptPath   string `json:"script_path"`
}

// PipelineStatus — состояние pipeline с именем проекта.
type PipelineStatus struct {
	*pipeline.Summary
	ProjectName string `json:"project_name"`
}
