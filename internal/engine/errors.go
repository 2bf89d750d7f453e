package engine

import "errors"

// Ошибки проверки правил потока данных.
var (
	// ErrUnknownRuleStep: правило ссылается на шаг, которого нет в каталоге.
	ErrUnknownRuleStep = errors.New("flow rule references unknown step")

	// ErrUnknownRuleOutput: шаг-источник не объявляет такой ключ выхода.
	ErrUnknownRuleOutput = errors.New("flow rule references undeclared output key")

	// ErrUnknownRuleParam: целевой параметр не является входным файлом.
	ErrUnknownRuleParam = errors.New("flow rule targets a non-input parameter")
)
