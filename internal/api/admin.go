package api

import (
	"encoding/json"
	"net/http"

	"cropadvisor/internal/metrics"
	"cropadvisor/internal/modelstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatusSource reports the model store state
type StatusSource interface {
	ModelStatus() modelstore.Status
}

// NewAdminRouter serves operational endpoints on the admin listener:
// Prometheus metrics, pprof under /debug and the model status.
func NewAdminRouter(m *metrics.Metrics, models StatusSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", m.Handler())
	r.Mount("/debug", middleware.Profiler())
	r.Get("/model", func(w http.ResponseWriter, req *http.Request) {
		status := models.ModelStatus()
		w.Header().Set("Content-Type", "application/json")
		if !status.Loaded {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return r
}
