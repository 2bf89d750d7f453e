package orchestrator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/repo"
)

// Ошибки оркестратора.
var (
	// ErrMonitorStopped — монитор остановлен и не принимает новые jobs.
	ErrMonitorStopped = errors.New("monitor stopped")

	// ErrNoMonitor — launcher создан без монитора.
	ErrNoMonitor = errors.New("launcher has no monitor")
)

// jobStoreError переводит ошибку хранилища при работе с job в доменную.
func jobStoreError(op string, id uuid.UUID, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return domain.UnavailableError(op, err)
}

// projectStoreError переводит ошибку хранилища при работе с проектом в доменную.
func projectStoreError(op, id string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
	}
	return domain.UnavailableError(op, err)
}
