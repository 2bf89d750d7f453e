package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/process"
	"github.com/shaiso/Amplicore/internal/repo"
	"github.com/shaiso/Amplicore/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
)

// liveJob — запись реестра живых jobs.
type liveJob struct {
	handle    process.Handle
	projectID string
	step      string
}

// exitedJob — job, процесс которого завершился на текущем тике.
type exitedJob struct {
	id   uuid.UUID
	live *liveJob
	code int
}

// Monitor следит за запущенными процессами и фиксирует их завершение.
//
// Monitor — единственный фоновый цикл, который:
//   - опрашивает процессы из реестра без блокировки
//   - записывает финальный статус и код выхода
//   - удаляет из outputs файлы, которых нет на диске
//   - переводит связанный шаг pipeline в статус job
type Monitor struct {
	store     repo.Store
	runner    process.Runner
	publisher EventPublisher

	// live — jobs с живым процессом (jobID → запись).
	live map[uuid.UUID]*liveJob
	mu   sync.Mutex

	pollInterval time.Duration
	now          func() time.Time

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// MonitorConfig — конфигурация Monitor.
type MonitorConfig struct {
	Store     repo.Store
	Runner    process.Runner
	Publisher EventPublisher // может быть nil

	PollInterval time.Duration // интервал опроса (default: 10s)

	Logger *slog.Logger
}

// NewMonitor создаёт Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		store:        cfg.Store,
		runner:       cfg.Runner,
		publisher:    cfg.Publisher,
		live:         make(map[uuid.UUID]*liveJob),
		pollInterval: pollInterval,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.With("component", "monitor"),
	}
}

// Start сверяет хранилище с реестром и запускает цикл опроса.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.reconcile(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel

	m.logger.Info("starting monitor", "poll_interval", m.pollInterval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.pollLoop(ctx)
	}()
	return nil
}

// Stop останавливает цикл опроса. Процессы продолжают работать и будут
// подхвачены сверкой при следующем старте.
func (m *Monitor) Stop() {
	m.stoppedMu.Lock()
	m.stopped = true
	m.stoppedMu.Unlock()

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.wg.Wait()

	m.logger.Info("monitor stopped", "live_jobs", m.LiveCount())
}

// IsStopped проверяет, остановлен ли Monitor.
func (m *Monitor) IsStopped() bool {
	m.stoppedMu.RLock()
	defer m.stoppedMu.RUnlock()
	return m.stopped
}

// Register добавляет живой процесс в реестр.
func (m *Monitor) Register(jobID uuid.UUID, h process.Handle, projectID, step string) {
	m.mu.Lock()
	m.live[jobID] = &liveJob{handle: h, projectID: projectID, step: step}
	n := len(m.live)
	m.mu.Unlock()

	telemetry.LiveJobs.Set(float64(n))
}

// release убирает job из реестра и возвращает его запись (nil, если job
// там не было). После release тик монитора этот job уже не увидит.
func (m *Monitor) release(jobID uuid.UUID) *liveJob {
	m.mu.Lock()
	lj := m.live[jobID]
	delete(m.live, jobID)
	n := len(m.live)
	m.mu.Unlock()

	telemetry.LiveJobs.Set(float64(n))
	return lj
}

// restore возвращает в реестр запись, снятую release.
func (m *Monitor) restore(jobID uuid.UUID, lj *liveJob) {
	if lj == nil {
		return
	}
	m.mu.Lock()
	m.live[jobID] = lj
	n := len(m.live)
	m.mu.Unlock()

	telemetry.LiveJobs.Set(float64(n))
}

// isLive проверяет, есть ли job в реестре.
func (m *Monitor) isLive(jobID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[jobID]
	return ok
}

// LiveCount возвращает количество отслеживаемых jobs.
func (m *Monitor) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// pollLoop — цикл опроса.
func (m *Monitor) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll выполняет один тик: собирает завершившиеся процессы и фиксирует их.
func (m *Monitor) poll(ctx context.Context) {
	start := time.Now()
	defer func() {
		telemetry.MonitorTick.Observe(time.Since(start).Seconds())
	}()

	exited := m.collectExited()
	if len(exited) == 0 {
		return
	}

	m.logger.Debug("processes exited", "count", len(exited))

	for _, e := range exited {
		status := domain.StatusForExitCode(e.code)
		exitCode := &e.code
		if process.IsAdopted(e.live.handle) {
			// Код выхода чужого процесса неизвестен.
			status = domain.JobStatusOrphaned
			exitCode = nil
		}

		if err := m.finish(ctx, e.id, e.live.projectID, e.live.step, status, exitCode); err != nil {
			m.logger.Error("failed to finalize job",
				"job_id", e.id,
				"error", err,
			)
		}
	}
}

// collectExited под мьютексом убирает из реестра завершившиеся процессы.
func (m *Monitor) collectExited() []exitedJob {
	m.mu.Lock()
	var exited []exitedJob
	for id, lj := range m.live {
		code, done := lj.handle.Poll()
		if !done {
			continue
		}
		delete(m.live, id)
		exited = append(exited, exitedJob{id: id, live: lj, code: code})
	}
	n := len(m.live)
	m.mu.Unlock()

	telemetry.LiveJobs.Set(float64(n))
	return exited
}

// finish записывает финальный статус, чистит outputs и обновляет шаг.
//
// Если job уже в финальном статусе (его отменили между опросом и записью),
// ничего не меняется.
func (m *Monitor) finish(ctx context.Context, id uuid.UUID, projectID, step string, status domain.JobStatus, exitCode *int) error {
	err := m.store.FinishJob(ctx, id, repo.JobFinish{
		Status:     status,
		ExitCode:   exitCode,
		FinishedAt: m.now(),
	})
	if errors.Is(err, repo.ErrInvalidState) {
		m.logger.Debug("job already finished", "job_id", id)
		return nil
	}
	if err != nil {
		return jobStoreError("finish job", id, err)
	}

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return jobStoreError("get job", id, err)
	}

	kept, changed := existingOutputs(job.Outputs)
	if changed {
		if err := m.store.UpdateJobOutputs(ctx, id, kept); err != nil {
			m.logger.Warn("failed to prune job outputs", "job_id", id, "error", err)
		} else {
			job.Outputs = kept
		}
	}

	markStep(ctx, m.store, m.logger, projectID, step, domain.StepStatusFromJob(status), id)

	telemetry.JobsFinished.WithLabelValues(string(status)).Inc()
	publishEvent(ctx, m.publisher, m.logger, job)

	m.logger.Info("job finished",
		"job_id", id,
		"tool", job.ToolName,
		"status", status,
		"exit_code", exitCode,
		"outputs", len(job.Outputs),
	)
	return nil
}
