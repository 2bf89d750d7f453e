package orchestrator

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/repo"
)

// EventPublisher публикует события жизненного цикла jobs.
// Реализуется mq.Publisher.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, job *domain.Job) error
}

// publishEvent публикует событие; ошибки только логируются.
func publishEvent(ctx context.Context, pub EventPublisher, logger *slog.Logger, job *domain.Job) {
	if pub == nil {
		return
	}
	if err := pub.PublishJobEvent(ctx, job); err != nil {
		logger.Warn("failed to publish job event",
			"job_id", job.ID,
			"status", job.Status,
			"error", err,
		)
	}
}

// markStep синхронизирует статус шага pipeline со статусом job.
func markStep(ctx context.Context, store repo.StepRepo, logger *slog.Logger, projectID, step string, status domain.StepStatus, jobID uuid.UUID) {
	if projectID == "" || step == "" {
		return
	}
	if err := store.UpdateStep(ctx, projectID, step, status, &jobID); err != nil {
		logger.Warn("failed to update pipeline step",
			"project_id", projectID,
			"step", step,
			"status", status,
			"error", err,
		)
	}
}

// existingOutputs оставляет только выходы, которые существуют как обычные файлы.
// changed равен true, если хотя бы одна запись удалена.
func existingOutputs(outputs map[string]string) (kept map[string]string, changed bool) {
	kept = make(map[string]string, len(outputs))
	for key, path := range outputs {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			changed = true
			continue
		}
		kept[key] = path
	}
	return kept, changed
}
