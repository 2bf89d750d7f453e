package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project объединяет jobs одного анализа и набор шагов pipeline.
//
// Проект создаётся один раз; после создания меняются только метаданные.
// Набор шагов создаётся вместе с проектом и больше не меняется.
type Project struct {
	// ID является коротким непрозрачным идентификатором (8 hex символов).
	ID string `json:"id"`

	// Name является человекочитаемым названием.
	Name string `json:"name"`

	// Description является свободным описанием.
	Description string `json:"description,omitempty"`

	// WorkingDir является рабочей директорией проекта.
	WorkingDir string `json:"working_dir"`

	// Metadata содержит произвольные данные, которые можно обновлять.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt является временем создания.
	CreatedAt time.Time `json:"created_at"`
}

// NewProjectID генерирует идентификатор проекта.
func NewProjectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
