package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaiso/Amplicore/internal/service"
)

// ListProjects возвращает все проекты.
// GET /api/v1/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, projects, len(projects))
}

// CreateProject создаёт проект и шаги pipeline.
// POST /api/v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	project, err := h.svc.CreateProject(r.Context(), service.CreateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		WorkingDir:  req.WorkingDir,
		Metadata:    req.Metadata,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, project)
}

// GetProject возвращает проект с шагами.
// GET /api/v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.GetProject(r.Context(), chi.URLParam(r, "id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, project)
}

// UpdateProject заменяет метаданные проекта.
// PATCH /api/v1/projects/{id}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	project, err := h.svc.UpdateProjectMetadata(r.Context(), chi.URLParam(r, "id"), req.Metadata)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, project)
}

// GetPipelineStatus возвращает состояние шагов проекта.
// GET /api/v1/projects/{id}/pipeline
func (h *Handler) GetPipelineStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.PipelineStatus(r.Context(), chi.URLParam(r, "id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, status)
}

// GetRecommendations возвращает рекомендацию следующего шага.
// GET /api/v1/projects/{id}/pipeline/recommendations?format=markdown
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Recommendations(r.Context(), chi.URLParam(r, "id"))
	if HandleError(w, h.logger, err) {
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		Text(w, "text/markdown", rec.Markdown())
		return
	}
	Success(w, RecommendationResponse{Recommendation: rec, Markdown: rec.Markdown()})
}

// ResolveInputs возвращает входы шага, найденные среди выходов проекта.
// GET /api/v1/projects/{id}/steps/{step}/inputs
func (h *Handler) ResolveInputs(w http.ResponseWriter, r *http.Request) {
	inputs, err := h.svc.ResolveInputs(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "step"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, inputs)
}

// SubmitStep запускает шаг pipeline проекта.
// POST /api/v1/projects/{id}/steps/{step}/jobs
func (h *Handler) SubmitStep(w http.ResponseWriter, r *http.Request) {
	var req SubmitStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	autoResolve := true
	if req.AutoResolveInputs != nil {
		autoResolve = *req.AutoResolveInputs
	}

	sub, err := h.svc.SubmitStep(r.Context(), service.SubmitStepRequest{
		ProjectID:   chi.URLParam(r, "id"),
		Step:        chi.URLParam(r, "step"),
		Params:      req.Params,
		AutoResolve: autoResolve,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Accepted(w, sub)
}
