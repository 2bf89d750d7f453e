package engine

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shaiso/Amplicore/internal/domain"
)

// Default configuration values.
const (
	DefaultCPUParam = "nb_cpus"
	DefaultCPUs     = 4
)

// CommandOptions настраивает сборку команды.
type CommandOptions struct {
	CPUParam    string // имя параметра числа CPU (default: nb_cpus)
	DefaultCPUs int    // значение, если параметр не передан (default: 4)
}

// Command является результатом сборки команды.
type Command struct {
	// Args является полным вектором аргументов процесса.
	Args []string

	// Outputs отображает ключ выхода в абсолютный путь файла.
	Outputs map[string]string

	// Params содержит параметры вызывающей стороны, дополненные
	// значениями по умолчанию и абсолютными путями выходов.
	Params map[string]any
}

// BuildCommand собирает вектор аргументов для запуска инструмента.
//
// Функция чистая: никакого I/O, кроме работы со строками путей.
// Обязательные непозиционные параметры не проверяются, это делает launcher.
func BuildCommand(tool *domain.ToolSpec, params map[string]any, jobDir string, opts CommandOptions) (*Command, error) {
	cpuParam := opts.CPUParam
	if cpuParam == "" {
		cpuParam = DefaultCPUParam
	}
	cpus := opts.DefaultCPUs
	if cpus <= 0 {
		cpus = DefaultCPUs
	}

	effective := make(map[string]any, len(params))
	for k, v := range params {
		effective[k] = v
	}

	args := tool.Executable()

	if tool.Positional != "" {
		v, ok := params[tool.Positional]
		if !ok || isEmpty(v) {
			return nil, &domain.ParamError{
				Tool:  tool.Name,
				Param: tool.Positional,
				Err:   domain.ErrMissingPositionalArgument,
			}
		}
		args = append(args, stringify(v))
	}

	outputs := make(map[string]string)
	for _, p := range tool.Params {
		if !p.OutputFile {
			continue
		}
		v, ok := effective[p.Name]
		if !ok {
			if p.Default == nil {
				continue
			}
			v = p.Default
		}
		// Явно переданная пустая строка уходит в флаг как есть и выходом не считается.
		if isEmpty(v) {
			continue
		}
		path := stringify(v)
		if !filepath.IsAbs(path) {
			path = filepath.Join(jobDir, path)
		}
		effective[p.Name] = path
		if p.OutputKey != "" {
			outputs[p.OutputKey] = path
		}
	}

	if _, declared := tool.Param(cpuParam); declared {
		if v, ok := effective[cpuParam]; !ok || v == nil {
			effective[cpuParam] = cpus
		}
	}

	for _, p := range tool.Params {
		if p.Name == tool.Positional || p.Flag == "" {
			continue
		}
		v, ok := effective[p.Name]
		if !ok || v == nil {
			continue
		}

		switch p.Type {
		case domain.ParamTypeBool:
			if truthy(v) {
				args = append(args, p.Flag)
			}
		case domain.ParamTypeList:
			items := listItems(v)
			if len(items) == 0 {
				continue
			}
			args = append(args, p.Flag)
			args = append(args, items...)
		default:
			args = append(args, p.Flag, stringify(v))
		}
	}

	return &Command{
		Args:    args,
		Outputs: outputs,
		Params:  effective,
	}, nil
}

// isEmpty считает отсутствующими nil и пустую строку.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// stringify переводит скалярное значение в аргумент командной строки.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// truthy интерпретирует значение булева параметра.
// Строки разбираются через strconv.ParseBool; нераспознанная непустая
// строка считается true.
func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return false
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return true
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// listItems разворачивает значение списочного параметра.
// Строка делится по пробельным символам.
func listItems(v any) []string {
	switch x := v.(type) {
	case string:
		return strings.Fields(x)
	case []string:
		var items []string
		for _, s := range x {
			if s != "" {
				items = append(items, s)
			}
		}
		return items
	case []any:
		items := make([]string, 0, len(x))
		for _, item := range x {
			if item == nil {
				continue
			}
			items = append(items, stringify(item))
		}
		return items
	default:
		return []string{stringify(x)}
	}
}
