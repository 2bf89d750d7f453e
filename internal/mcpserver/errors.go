package mcpserver

import (
	"fmt"

	"github.com/shaiso/Amplicore/internal/service"
)

// invalid помечает ошибку разбора аргументов как ErrInvalidArgument.
func invalid(err error) error {
	return fmt.Errorf("%w: %v", service.ErrInvalidArgument, err)
}
