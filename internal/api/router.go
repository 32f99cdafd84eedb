package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-station-index/docs" // swag-generated swagger spec

	"go-station-index/internal/api/handler"
	"go-station-index/internal/metrics"
)

// NewRouter builds the API router. mcol may be nil to disable /metrics.
func NewRouter(mcol *metrics.Collector) http.Handler {
	h := &handler.RunHandler{Metrics: mcol}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Post("/", h.CreateRun)
		r.Get("/", h.ListRuns)
		r.Get("/{id}", h.GetRun)
		r.Get("/{id}/index", h.GetRunIndex)
		r.Get("/{id}/report", h.GetRunReport)
		r.Get("/{id}/errors", h.GetRunErrors)
		r.Get("/{id}/logs", h.GetRunLogs)
	})

	r.Get("/swagger/*", httpSwagger.Handler())
	if mcol != nil {
		r.Handle("/metrics", mcol.Handler())
	}
	return r
}
