package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job является одним асинхронным запуском инструмента.
//
// Job создаётся при submit со статусом running. Дальше его меняют только
// монитор завершения, отмена и сверка при старте. Jobs никогда не удаляются.
type Job struct {
	// ID является глобально уникальным идентификатором.
	ID uuid.UUID `json:"id"`

	// ProjectID пуст для standalone jobs.
	ProjectID string `json:"project_id,omitempty"`

	// ToolName является именем инструмента из каталога.
	ToolName string `json:"tool_name"`

	// StepName пуст, если job запущен вне pipeline.
	StepName string `json:"step_name,omitempty"`

	// Params содержит итоговые параметры запуска.
	Params map[string]any `json:"params,omitempty"`

	// Command является полным вектором аргументов процесса.
	Command []string `json:"command"`

	Status JobStatus `json:"status"`

	// PID равен nil, если процесс не удалось отследить.
	PID *int `json:"pid,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// ExitCode для отменённых jobs равен -15 (SIGTERM).
	ExitCode *int `json:"exit_code,omitempty"`

	StdoutPath string `json:"stdout_path"`
	StderrPath string `json:"stderr_path"`
	LogPath    string `json:"log_path"`

	// Outputs отображает ключ классификации выхода в абсолютный путь.
	// После завершения здесь остаются только существующие файлы.
	Outputs map[string]string `json:"outputs,omitempty"`

	WorkingDir string    `json:"working_dir"`
	CreatedAt  time.Time `json:"created_at"`
}

// Elapsed возвращает время выполнения на момент now.
// Для завершённых jobs считается до FinishedAt.
func (j *Job) Elapsed(now time.Time) time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	end := now
	if j.FinishedAt != nil {
		end = *j.FinishedAt
	}
	if end.Before(j.StartedAt) {
		return 0
	}
	return end.Sub(j.StartedAt)
}

// IsFinished возвращает true, если job в финальном статусе.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// InPipeline возвращает true, если job привязан к шагу проекта.
func (j *Job) InPipeline() bool {
	return j.ProjectID != "" && j.StepName != ""
}
