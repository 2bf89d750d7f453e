package catalog

import (
	"fmt"

	"github.com/shaiso/Amplicore/internal/domain"
)

// validate проверяет каталог целиком.
//
// Проверяет:
//   - наличие инструментов и уникальность имён
//   - корректность параметров каждого инструмента
//   - что шаги pipeline ссылаются на известные инструменты
func validate(f *file) error {
	if len(f.Tools) == 0 {
		return ErrNoTools
	}

	names := make(map[string]bool, len(f.Tools))
	for i := range f.Tools {
		tool := &f.Tools[i]

		if tool.Name == "" {
			return NewValidationError("", "name", "tool has empty name", ErrEmptyToolName)
		}
		if names[tool.Name] {
			return NewValidationError(tool.Name, "name",
				fmt.Sprintf("duplicate tool name: %s", tool.Name), ErrDuplicateTool)
		}
		names[tool.Name] = true

		if tool.Script == "" {
			return NewValidationError(tool.Name, "script", "tool has no script", ErrEmptyScript)
		}

		if err := validateParams(tool); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, list := range [][]string{f.PipelineOrder, f.OptionalSteps} {
		for _, step := range list {
			if !names[step] {
				return NewValidationError(step, "pipeline",
					fmt.Sprintf("pipeline step %s is not a known tool", step), ErrUnknownStep)
			}
			if seen[step] {
				return NewValidationError(step, "pipeline",
					fmt.Sprintf("pipeline step %s listed twice", step), ErrDuplicateStep)
			}
			seen[step] = true
		}
	}

	return nil
}

// validateParams проверяет параметры одного инструмента.
func validateParams(tool *domain.ToolSpec) error {
	params := make(map[string]bool, len(tool.Params))
	outputKeys := make(map[string]string)

	for _, p := range tool.Params {
		if p.Name == "" {
			return NewValidationError(tool.Name, "params", "parameter has empty name", ErrEmptyParamName)
		}
		if params[p.Name] {
			return NewValidationError(tool.Name, p.Name,
				fmt.Sprintf("duplicate parameter: %s", p.Name), ErrDuplicateParam)
		}
		params[p.Name] = true

		if p.Type != "" && !p.Type.IsValid() {
			return NewValidationError(tool.Name, p.Name,
				fmt.Sprintf("unknown parameter type: %s", p.Type), ErrUnknownParamType)
		}

		if p.Name != tool.Positional && p.Flag == "" {
			return NewValidationError(tool.Name, p.Name, "parameter has no flag", ErrMissingFlag)
		}

		if p.OutputFile && p.OutputKey != "" {
			if other, ok := outputKeys[p.OutputKey]; ok {
				return NewValidationError(tool.Name, p.Name,
					fmt.Sprintf("output key %s already used by %s", p.OutputKey, other), ErrDuplicateOutputKey)
			}
			outputKeys[p.OutputKey] = p.Name
		}
	}

	if tool.Positional != "" && !params[tool.Positional] {
		return NewValidationError(tool.Name, tool.Positional,
			fmt.Sprintf("positional parameter %s is not declared", tool.Positional), ErrUnknownPositional)
	}

	return nil
}
