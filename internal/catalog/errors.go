package catalog

import "errors"

// Ошибки валидации каталога.
var (
	ErrInvalidCatalog     = errors.New("invalid catalog")
	ErrNoTools            = errors.New("catalog has no tools")
	ErrEmptyToolName      = errors.New("tool has empty name")
	ErrDuplicateTool      = errors.New("duplicate tool name")
	ErrEmptyScript        = errors.New("tool has no script")
	ErrEmptyParamName     = errors.New("parameter has empty name")
	ErrDuplicateParam     = errors.New("duplicate parameter name")
	ErrUnknownParamType   = errors.New("unknown parameter type")
	ErrMissingFlag        = errors.New("parameter has no flag")
	ErrDuplicateOutputKey = errors.New("duplicate output key")
	ErrUnknownPositional  = errors.New("positional parameter not declared")
	ErrUnknownStep        = errors.New("pipeline step is not a known tool")
	ErrDuplicateStep      = errors.New("pipeline step listed twice")
)

// ValidationError является ошибкой валидации с контекстом.
type ValidationError struct {
	Tool    string // инструмент, где найдена ошибка
	Field   string // поле или параметр
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Tool != "" {
		return "tool " + e.Tool + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(tool, field, message string, err error) *ValidationError {
	return &ValidationError{
		Tool:    tool,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
