package domain

// JobStatus является статусом выполнения job.
//
// Жизненный цикл:
//
//	running → completed
//	        ↘ failed
//	        ↘ cancelled (по сигналу SIGTERM)
//	        ↘ orphaned  (процесс потерян после рестарта)
type JobStatus string

const (
	// JobStatusRunning: процесс запущен и ещё не завершился.
	JobStatusRunning JobStatus = "running"

	// JobStatusCompleted: процесс завершился с кодом 0.
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed: процесс завершился с ненулевым кодом.
	JobStatusFailed JobStatus = "failed"

	// JobStatusCancelled: процессу отправлен SIGTERM по запросу пользователя.
	JobStatusCancelled JobStatus = "cancelled"

	// JobStatusOrphaned: результат выполнения неизвестен (процесс пережил рестарт).
	JobStatusOrphaned JobStatus = "orphaned"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusOrphaned:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что строка является известным статусом job.
func (s JobStatus) IsValid() bool {
	return s == JobStatusRunning || s.IsTerminal()
}

// StatusForExitCode возвращает финальный статус по коду выхода процесса.
func StatusForExitCode(code int) JobStatus {
	if code == 0 {
		return JobStatusCompleted
	}
	return JobStatusFailed
}

// StepStatus является статусом шага pipeline в проекте.
//
// Шаг начинается в pending и далее повторяет статус последнего
// связанного с ним job.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusCancelled StepStatus = "cancelled"
	StepStatusOrphaned  StepStatus = "orphaned"
)

// StepStatusFromJob переводит статус job в статус шага.
func StepStatusFromJob(s JobStatus) StepStatus {
	return StepStatus(s)
}
