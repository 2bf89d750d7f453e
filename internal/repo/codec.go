package repo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// marshalMap кодирует карту в JSON; nil кодируется как {}.
func marshalMap[V any](m map[string]V) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal map: %w", err)
	}
	return data, nil
}

// marshalList кодирует срез строк в JSON; nil кодируется как [].
func marshalList(items []string) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal list: %w", err)
	}
	return data, nil
}

// unmarshalInto декодирует JSON, пропуская пустые значения.
func unmarshalInto(data []byte, v any, field string) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", field, err)
	}
	return nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString возвращает значение или пустую строку для NULL.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullInt возвращает nil для неположительного лимита.
func nullInt(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
