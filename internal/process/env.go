package process

import (
	"os"
	"strings"
)

// Environment variables prepended for FROGS tools.
const (
	EnvPath       = "PATH"
	EnvPythonPath = "PYTHONPATH"
)

// PrependPath добавляет dir в начало списковой переменной key.
// Существующее значение сохраняется после dir. Пустой dir ничего не меняет.
func PrependPath(env []string, key, dir string) []string {
	if dir == "" {
		return env
	}

	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	found := false
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
			continue
		}
		found = true
		current := strings.TrimPrefix(kv, prefix)
		if current == "" {
			out = append(out, prefix+dir)
		} else {
			out = append(out, prefix+dir+string(os.PathListSeparator)+current)
		}
	}
	if !found {
		out = append(out, prefix+dir)
	}
	return out
}

// ToolEnv строит окружение инструмента: bin dir в начале PATH и
// lib dir в начале PYTHONPATH поверх base.
func ToolEnv(base []string, binDir, libDir string) []string {
	env := PrependPath(base, EnvPath, binDir)
	return PrependPath(env, EnvPythonPath, libDir)
}

// Lookup возвращает значение переменной из env.
func Lookup(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return strings.TrimPrefix(env[i], prefix), true
		}
	}
	return "", false
}
