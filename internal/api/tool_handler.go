package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListTools возвращает инструменты каталога.
// GET /api/v1/tools?category=...
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	tools := h.svc.ListTools(r.URL.Query().Get("category"))
	List(w, tools, len(tools))
}

// GetTool возвращает параметры инструмента.
// GET /api/v1/tools/{name}
func (h *Handler) GetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := h.svc.ToolHelp(chi.URLParam(r, "name"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, tool)
}
