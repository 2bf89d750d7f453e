package api

import (
	"github.com/shaiso/Amplicore/internal/pipeline"
)

// CreateProjectRequest — запрос на создание проекта.
type CreateProjectRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	WorkingDir  string         `json:"working_dir,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdateProjectRequest — запрос на замену метаданных проекта.
type UpdateProjectRequest struct {
	Metadata map[string]any `json:"metadata"`
}

// SubmitJobRequest — запрос на запуск инструмента.
type SubmitJobRequest struct {
	ToolName  string         `json:"tool_name"`
	Params    map[string]any `json:"params,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
}

// SubmitStepRequest — запрос на запуск шага pipeline.
type SubmitStepRequest struct {
	Params map[string]any `json:"params,omitempty"`

	// AutoResolveInputs по умолчанию true.
	AutoResolveInputs *bool `json:"auto_resolve_inputs,omitempty"`
}

// RecommendationResponse — рекомендация со сформированным Markdown.
type RecommendationResponse struct {
	*pipeline.Recommendation
	Markdown string `json:"markdown"`
}
