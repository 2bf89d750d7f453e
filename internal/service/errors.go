package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidArgument: запрос некорректен до обращения к хранилищу.
var ErrInvalidArgument = errors.New("invalid argument")

// parseJobID разбирает идентификатор job.
func parseJobID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: job id %q", ErrInvalidArgument, id)
	}
	return parsed, nil
}
