package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/service"
)

// ListJobs возвращает jobs с фильтрацией.
// GET /api/v1/jobs?project_id=...&status=...&limit=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := service.JobQuery{
		ProjectID: r.URL.Query().Get("project_id"),
		Status:    domain.JobStatus(r.URL.Query().Get("status")),
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			BadRequest(w, "invalid limit")
			return
		}
		q.Limit = limit
	}

	jobs, err := h.svc.ListJobs(r.Context(), q)
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, jobs, len(jobs))
}

// SubmitJob запускает инструмент как фоновый job.
// POST /api/v1/jobs
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ToolName == "" {
		BadRequest(w, "tool_name is required")
		return
	}

	job, err := h.svc.SubmitJob(r.Context(), service.SubmitJobRequest{
		Tool:      req.ToolName,
		Params:    req.Params,
		ProjectID: req.ProjectID,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Accepted(w, job)
}

// GetJob возвращает состояние job.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.JobStatus(r.Context(), chi.URLParam(r, "id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, job)
}

// GetJobResults возвращает выходы job и хвост лога.
// GET /api/v1/jobs/{id}/results
func (h *Handler) GetJobResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.JobResults(r.Context(), chi.URLParam(r, "id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, res)
}

// GetJobLog возвращает хвост лога job текстом.
// GET /api/v1/jobs/{id}/log?tail=100
func (h *Handler) GetJobLog(w http.ResponseWriter, r *http.Request) {
	tail := 0
	if tailStr := r.URL.Query().Get("tail"); tailStr != "" {
		n, err := strconv.Atoi(tailStr)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid tail")
			return
		}
		tail = n
	}

	log, err := h.svc.ReadLog(r.Context(), chi.URLParam(r, "id"), tail)
	if HandleError(w, h.logger, err) {
		return
	}
	Text(w, "text/plain", log)
}

// GetJobReport возвращает текст отчёта job.
// GET /api/v1/jobs/{id}/report
func (h *Handler) GetJobReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ReadReport(r.Context(), chi.URLParam(r, "id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Text(w, "text/plain", report)
}

// CancelJob отправляет SIGTERM процессу job.
// POST /api/v1/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CancelJob(r.Context(), chi.URLParam(r, "id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, res)
}
