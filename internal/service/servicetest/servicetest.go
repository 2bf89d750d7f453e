// Package servicetest собирает Service на SQLite и /bin/sh инструментах
// для тестов транспортов.
package servicetest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/catalog"
	"github.com/shaiso/Amplicore/internal/orchestrator"
	"github.com/shaiso/Amplicore/internal/pipeline"
	"github.com/shaiso/Amplicore/internal/process"
	"github.com/shaiso/Amplicore/internal/repo"
	"github.com/shaiso/Amplicore/internal/service"
)

var scripts = map[string]string{
	"stepA.sh": `while [ $# -gt 0 ]; do
  case "$1" in
    --output-fasta) echo ">seq1" > "$2"; shift 2 ;;
    --html) echo "<html><body><h1>stepA</h1><p>ok</p></body></html>" > "$2"; shift 2 ;;
    --log-file) echo "stepA done" > "$2"; shift 2 ;;
    *) shift ;;
  esac
done
`,
	"stepB.sh":   "exit 0\n",
	"sleeper.sh": "exec sleep 30\n",
}

// Catalog — каталог тестовых инструментов.
const Catalog = `
pipeline_order: [stepA, stepB]
optional_steps: [sleeper]
tools:
  - name: stepA
    script: stepA.sh
    description: first step
    category: Core pipeline
    params:
      - name: output_fasta
        flag: --output-fasta
        output_file: true
        output_key: fasta
        default: a.fasta
      - name: html
        flag: --html
        output_file: true
        output_key: html
        default: a.html
      - name: log_file
        flag: --log-file
        output_file: true
        output_key: log
        default: frogs.log
  - name: stepB
    script: stepB.sh
    description: second step
    category: Core pipeline
    params:
      - name: input_fasta
        flag: --input-fasta
        required: true
        input_file: true
        help: sequences
      - name: input_biom
        flag: --input-biom
        required: true
        input_file: true
        help: abundance table
  - name: sleeper
    script: sleeper.sh
    description: sleeps
    category: Optional processing
    optional: true
`

// Env — собранное окружение.
type Env struct {
	Service *service.Service
	Store   repo.Store
	Root    string
}

// New собирает Service с запущенным монитором. Всё закрывается через t.Cleanup.
func New(t testing.TB) *Env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	toolsDir := t.TempDir()
	for name, body := range scripts {
		if err := os.WriteFile(filepath.Join(toolsDir, name), []byte(body), 0o755); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}
	cat, err := catalog.Parse([]byte(Catalog), catalog.Options{ToolsDir: toolsDir, Interpreter: "/bin/sh"})
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	store, err := repo.NewSQLiteStore(filepath.Join(t.TempDir(), "amplicore.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	runner := process.NewExecRunner()
	monitor := orchestrator.NewMonitor(orchestrator.MonitorConfig{
		Store:        store,
		Runner:       runner,
		PollInterval: 20 * time.Millisecond,
		Logger:       logger,
	})
	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("start monitor: %v", err)
	}
	t.Cleanup(monitor.Stop)

	root := t.TempDir()
	launcher := orchestrator.NewLauncher(orchestrator.LauncherConfig{
		Catalog:       cat,
		Store:         store,
		Runner:        runner,
		Monitor:       monitor,
		WorkspaceRoot: root,
		Env:           process.ToolEnv(os.Environ(), "", ""),
		Logger:        logger,
	})

	return &Env{
		Service: service.New(service.Config{
			Store:         store,
			Catalog:       cat,
			Launcher:      launcher,
			Pipeline:      pipeline.New(pipeline.Config{Store: store, Catalog: cat, Logger: logger}),
			WorkspaceRoot: root,
			Logger:        logger,
		}),
		Store: store,
		Root:  root,
	}
}

// WaitFinished ждёт финального статуса job.
func (e *Env) WaitFinished(t testing.TB, id uuid.UUID) *service.JobView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		v, err := e.Service.JobStatus(context.Background(), id.String())
		if err != nil {
			t.Fatalf("job status: %v", err)
		}
		if v.Status.IsTerminal() {
			return v
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}
