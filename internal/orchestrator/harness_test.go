package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/catalog"
	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/process"
	"github.com/shaiso/Amplicore/internal/repo"
)

// Инструменты-заглушки на /bin/sh.
var testScripts = map[string]string{
	"stepA.sh": `while [ $# -gt 0 ]; do
  case "$1" in
    --output-fasta) echo ">seq1" > "$2"; shift 2 ;;
    --log-file) echo "stepA done" > "$2"; shift 2 ;;
    *) shift ;;
  esac
done
`,
	"stepB.sh":   "exit 0\n",
	"sleeper.sh": "exec sleep 30\n",
	"failer.sh":  "echo boom >&2\nexit 3\n",
	"modal.sh":   "echo \"$@\"\n",
}

const testCatalog = `
pipeline_order: [stepA, stepB]
optional_steps: [sleeper]
tools:
  - name: stepA
    script: stepA.sh
    category: Core pipeline
    params:
      - name: output_fasta
        flag: --output-fasta
        output_file: true
        output_key: fasta
        default: a.fasta
      - name: log_file
        flag: --log-file
        output_file: true
        output_key: log
        default: frogs.log
  - name: stepB
    script: stepB.sh
    category: Core pipeline
    params:
      - name: input_fasta
        flag: --input-fasta
        required: true
        input_file: true
      - name: input_biom
        flag: --input-biom
        required: true
        input_file: true
  - name: sleeper
    script: sleeper.sh
    category: Optional processing
    optional: true
  - name: failer
    script: failer.sh
    category: Optional processing
  - name: modal
    script: modal.sh
    category: Pre-processing
    positional: mode
    params:
      - name: mode
      - name: threshold
        flag: --threshold
        type: int
`

type harness struct {
	store    repo.Store
	monitor  *Monitor
	launcher *Launcher
	runner   process.Runner
	pub      *recordingPublisher
	root     string
	catalog  *catalog.Catalog
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	toolsDir := t.TempDir()
	for name, body := range testScripts {
		if err := os.WriteFile(filepath.Join(toolsDir, name), []byte(body), 0o755); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}
	c, err := catalog.Parse([]byte(testCatalog), catalog.Options{ToolsDir: toolsDir, Interpreter: "/bin/sh"})
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c
}

func newTestStore(t *testing.T) repo.Store {
	t.Helper()
	s, err := repo.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, process.NewExecRunner(), nil)
}

// newHarnessWith собирает компоненты с заданными runner и store (nil — SQLite).
func newHarnessWith(t *testing.T, runner process.Runner, store repo.Store) *harness {
	t.Helper()
	if store == nil {
		store = newTestStore(t)
	}
	h := &harness{
		store:   store,
		runner:  runner,
		pub:     &recordingPublisher{},
		root:    t.TempDir(),
		catalog: newTestCatalog(t),
	}
	h.monitor = NewMonitor(MonitorConfig{
		Store:        store,
		Runner:       runner,
		Publisher:    h.pub,
		PollInterval: 20 * time.Millisecond,
		Logger:       testLogger(),
	})
	h.launcher = NewLauncher(LauncherConfig{
		Catalog:       h.catalog,
		Store:         store,
		Runner:        runner,
		Monitor:       h.monitor,
		Publisher:     h.pub,
		WorkspaceRoot: h.root,
		Env:           process.ToolEnv(os.Environ(), "", ""),
		Logger:        testLogger(),
	})
	return h
}

func (h *harness) createProject(t *testing.T) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:         domain.NewProjectID(),
		Name:       "test",
		WorkingDir: h.root,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.CreateProject(context.Background(), p, domain.NewPipelineSteps(p.ID, h.catalog.Steps())); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// waitExited ждёт завершения процесса, не снимая job с реестра.
func (h *harness) waitExited(t *testing.T, id uuid.UUID) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		h.monitor.mu.Lock()
		lj, ok := h.monitor.live[id]
		var done bool
		if ok {
			_, done = lj.handle.Poll()
		}
		h.monitor.mu.Unlock()
		if !ok || done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not exit", id)
}

// finishJob ждёт завершения процесса и выполняет один тик монитора.
func (h *harness) finishJob(t *testing.T, id uuid.UUID) *domain.Job {
	t.Helper()
	h.waitExited(t, id)
	h.monitor.poll(context.Background())

	job, err := h.store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	return job
}

func (h *harness) stepStatus(t *testing.T, projectID, step string) domain.StepStatus {
	t.Helper()
	steps, err := h.store.ListSteps(context.Background(), projectID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	for _, s := range steps {
		if s.Name == step {
			return s.Status
		}
	}
	t.Fatalf("step %s not found", step)
	return ""
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.JobStatus
}

func (p *recordingPublisher) PublishJobEvent(_ context.Context, job *domain.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, job.Status)
	return nil
}

func (p *recordingPublisher) statuses() []domain.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.JobStatus(nil), p.events...)
}

// fakeRunner управляет процессами без их запуска.
type fakeRunner struct {
	mu        sync.Mutex
	nextPID   int
	startErr  error
	signalErr error
	signals   []int
	onSignal  func(pid int) // вызывается после доставки сигнала
	alive     map[int]bool
	handles   map[int]*fakeHandle
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		nextPID: 1000,
		alive:   make(map[int]bool),
		handles: make(map[int]*fakeHandle),
	}
}

func (r *fakeRunner) Start(spec process.Spec) (process.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.nextPID++
	h := &fakeHandle{pid: r.nextPID}
	r.handles[h.pid] = h
	r.alive[h.pid] = true
	return h, nil
}

func (r *fakeRunner) Signal(pid int, sig syscall.Signal) error {
	r.mu.Lock()
	r.signals = append(r.signals, pid)
	if r.signalErr != nil {
		r.mu.Unlock()
		return r.signalErr
	}
	if !r.alive[pid] {
		r.mu.Unlock()
		return fmt.Errorf("%w: pid %d", process.ErrNoSuchProcess, pid)
	}
	hook := r.onSignal
	r.mu.Unlock()

	if hook != nil {
		hook(pid)
	}
	return nil
}

func (r *fakeRunner) Alive(pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alive[pid]
}

func (r *fakeRunner) setAlive(pid int, alive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alive[pid] = alive
}

func (r *fakeRunner) handle(pid int) *fakeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[pid]
}

func (r *fakeRunner) signalled() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.signals...)
}

type fakeHandle struct {
	mu   sync.Mutex
	pid  int
	code int
	done bool
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) exit(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.code, h.done = code, true
}

func (h *fakeHandle) Poll() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.code, h.done
}

// failingStore отказывает во вставке jobs.
type failingStore struct {
	repo.Store
}

var errDiskFull = errors.New("disk full")

func (s failingStore) InsertJob(context.Context, *domain.Job) error {
	return errDiskFull
}
