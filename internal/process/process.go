package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Ошибки управления процессами.
var (
	// ErrNoSuchProcess: процесса с таким pid нет.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrPermission: нет прав отправить сигнал процессу.
	ErrPermission = errors.New("operation not permitted")

	// ErrEmptyCommand: пустой вектор аргументов.
	ErrEmptyCommand = errors.New("empty command")
)

// Spec описывает запуск внешнего процесса.
type Spec struct {
	Args   []string // Args[0] является исполняемым файлом
	Dir    string   // рабочая директория
	Env    []string // окружение в формате KEY=VALUE
	Stdout string   // файл для stdout (создаётся)
	Stderr string   // файл для stderr (создаётся)
}

// Handle является живым процессом, за которым следит монитор.
type Handle interface {
	// PID возвращает идентификатор процесса.
	PID() int

	// Poll не блокируется: возвращает код выхода и true, если процесс завершился.
	Poll() (exitCode int, exited bool)
}

// Runner запускает процессы и адресует их по pid.
type Runner interface {
	Start(spec Spec) (Handle, error)
	Signal(pid int, sig syscall.Signal) error
	Alive(pid int) bool
}

// ExecRunner реализует Runner через os/exec.
type ExecRunner struct{}

// NewExecRunner создаёт ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Start запускает процесс в отдельной группе, чтобы сигналы терминала
// сервера не доходили до инструментов.
func (r *ExecRunner) Start(spec Spec) (Handle, error) {
	if len(spec.Args) == 0 {
		return nil, ErrEmptyCommand
	}

	stdout, err := os.Create(spec.Stdout)
	if err != nil {
		return nil, fmt.Errorf("create stdout: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(spec.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create stderr: %w", err)
	}
	defer stderr.Close()

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Args[0], err)
	}

	h := &execHandle{
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}
	go h.wait(cmd)

	return h, nil
}

// Signal отправляет сигнал процессу по pid.
func (r *ExecRunner) Signal(pid int, sig syscall.Signal) error {
	return signal(pid, sig)
}

// Alive проверяет существование процесса сигналом 0.
func (r *ExecRunner) Alive(pid int) bool {
	return Alive(pid)
}

// execHandle следит за дочерним процессом. Wait выполняется в отдельной
// горутине, поэтому процесс всегда будет собран, даже если handle
// больше никто не опрашивает.
type execHandle struct {
	pid  int
	done chan struct{}

	mu   sync.Mutex
	code int
}

func (h *execHandle) wait(cmd *exec.Cmd) {
	err := cmd.Wait()

	code := 0
	if err != nil {
		code = -1
	}
	if state := cmd.ProcessState; state != nil {
		code = ExitCode(state)
	}

	h.mu.Lock()
	h.code = code
	h.mu.Unlock()
	close(h.done)
}

func (h *execHandle) PID() int { return h.pid }

func (h *execHandle) Poll() (int, bool) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.code, true
	default:
		return 0, false
	}
}

// ExitCode возвращает код выхода; для процесса, убитого сигналом,
// возвращается минус номер сигнала (SIGTERM → -15).
func ExitCode(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return state.ExitCode()
}

// signal отправляет сигнал и переводит errno в ошибки пакета.
func signal(pid int, sig syscall.Signal) error {
	err := unix.Kill(pid, sig)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: pid %d", ErrNoSuchProcess, pid)
	case errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: pid %d: %w", ErrPermission, pid, err)
	default:
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
}

// Alive проверяет, что процесс существует и принадлежит нам.
// EPERM означает чужой процесс: pid переиспользован, наш job умер.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
