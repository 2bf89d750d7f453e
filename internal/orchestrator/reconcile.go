package orchestrator

import (
	"context"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/process"
	"github.com/shaiso/Amplicore/internal/repo"
)

// reconcile обрабатывает jobs в статусе running, которых нет в реестре.
//
// Процесс с живым pid снова отслеживается (код выхода будет неизвестен,
// поэтому job станет orphaned). Job без pid, с мёртвым процессом или с pid,
// занятым чужим процессом, сразу помечается orphaned.
func (m *Monitor) reconcile(ctx context.Context) error {
	jobs, err := m.store.ListJobs(ctx, repo.JobFilter{Status: domain.JobStatusRunning})
	if err != nil {
		return domain.UnavailableError("list running jobs", err)
	}

	var adopted, orphaned int
	for i := range jobs {
		job := &jobs[i]
		if m.isLive(job.ID) {
			continue
		}

		if job.PID != nil && m.runner.Alive(*job.PID) {
			m.Register(job.ID, process.Adopt(*job.PID, m.runner), job.ProjectID, job.StepName)
			adopted++
			continue
		}

		if err := m.finish(ctx, job.ID, job.ProjectID, job.StepName, domain.JobStatusOrphaned, nil); err != nil {
			m.logger.Error("failed to mark job orphaned", "job_id", job.ID, "error", err)
			continue
		}
		orphaned++
	}

	if adopted > 0 || orphaned > 0 {
		m.logger.Info("reconciled running jobs",
			"adopted", adopted,
			"orphaned", orphaned,
		)
	}
	return nil
}
