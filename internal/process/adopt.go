package process

// UnknownExitCode возвращается для процессов, код выхода которых узнать нельзя.
const UnknownExitCode = -1

// probeHandle следит за процессом, который не является дочерним
// (например, пережившим рестарт сервера). Код выхода такого процесса
// недоступен, известно только то, что он исчез.
type probeHandle struct {
	pid   int
	alive func(int) bool
}

// Adopt создаёт Handle для чужого процесса по pid.
func Adopt(pid int, r Runner) Handle {
	return &probeHandle{pid: pid, alive: r.Alive}
}

func (h *probeHandle) PID() int { return h.pid }

func (h *probeHandle) Poll() (int, bool) {
	if h.alive(h.pid) {
		return 0, false
	}
	return UnknownExitCode, true
}

// IsAdopted сообщает, что Handle создан через Adopt.
func IsAdopted(h Handle) bool {
	_, ok := h.(*probeHandle)
	return ok
}
