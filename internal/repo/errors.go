package repo

import "errors"

// Общие ошибки хранилищ.
var (
	// ErrNotFound: запись не найдена.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists: запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState: переход статуса невозможен, например job уже завершён.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnknownBackend: строка подключения не указывает известное хранилище.
	ErrUnknownBackend = errors.New("unknown store backend")
)
