package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes возвращает роутер /api/v1.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		Recovery(h.logger),
		Logging(h.logger),
		Metrics,
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowed(w)
	})

	submit := RateLimit(h.limiter)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", h.ListTools)
		r.Get("/tools/{name}", h.GetTool)

		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/", h.GetProject)
			r.Patch("/", h.UpdateProject)
			r.Get("/pipeline", h.GetPipelineStatus)
			r.Get("/pipeline/recommendations", h.GetRecommendations)
			r.Get("/steps/{step}/inputs", h.ResolveInputs)
			r.With(submit).Post("/steps/{step}/jobs", h.SubmitStep)
		})

		r.Get("/jobs", h.ListJobs)
		r.With(submit).Post("/jobs", h.SubmitJob)
		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", h.GetJob)
			r.Get("/results", h.GetJobResults)
			r.Get("/log", h.GetJobLog)
			r.Get("/report", h.GetJobReport)
			r.Post("/cancel", h.CancelJob)
		})
	})

	return r
}
