package domain

import (
	"errors"
	"fmt"
)

// Ошибки, которые видят вызывающие стороны.
var (
	// ErrUnknownTool: инструмента нет в каталоге.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMissingRequiredParameter: не передан обязательный параметр.
	ErrMissingRequiredParameter = errors.New("missing required parameter")

	// ErrMissingPositionalArgument: не передан позиционный параметр (subparser).
	ErrMissingPositionalArgument = errors.New("missing positional argument")

	// ErrJobNotFound: job не найден.
	ErrJobNotFound = errors.New("job not found")

	// ErrProjectNotFound: проект не найден.
	ErrProjectNotFound = errors.New("project not found")

	// ErrSignalPermissionDenied: не хватает прав отправить сигнал процессу.
	ErrSignalPermissionDenied = errors.New("signal permission denied")

	// ErrStoreUnavailable: хранилище не выполнило операцию.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ParamError связывает ошибку параметра с инструментом и именем параметра.
type ParamError struct {
	Tool  string
	Param string
	Flag  string
	Err   error
}

// Error реализует интерфейс error.
func (e *ParamError) Error() string {
	if e.Flag != "" {
		return fmt.Sprintf("%s: %v: %s (%s)", e.Tool, e.Err, e.Param, e.Flag)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Param)
}

// Unwrap возвращает базовую ошибку.
func (e *ParamError) Unwrap() error {
	return e.Err
}

// UnavailableError оборачивает ошибку хранилища в ErrStoreUnavailable.
func UnavailableError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
