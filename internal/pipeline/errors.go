package pipeline

import (
	"errors"
	"fmt"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/repo"
)

// storeError переводит ошибку хранилища в доменную.
func storeError(op, projectID string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, projectID)
	}
	return domain.UnavailableError(op, err)
}
