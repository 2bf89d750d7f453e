package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseParams собирает параметры инструмента из --params-json и --param KEY=VALUE.
//
// Значение KEY=VALUE, которое читается как JSON (число, true/false, массив),
// передаётся типизированным, иначе строкой. KEY=VALUE перекрывает --params-json.
func parseParams(kvs []string, rawJSON string) (map[string]any, error) {
	params := make(map[string]any)

	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &params); err != nil {
			return nil, fmt.Errorf("invalid --params-json: %w", err)
		}
	}

	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param format %q, expected KEY=VALUE", kv)
		}
		params[key] = paramValue(value)
	}

	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

func paramValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case float64, bool, []any:
		return v
	default:
		return s
	}
}

func formatInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func formatElapsed(secs *float64) string {
	if secs == nil {
		return "-"
	}
	return (time.Duration(*secs * float64(time.Second))).Round(time.Second).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
