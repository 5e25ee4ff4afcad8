package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the handler into a gorilla/mux router.
//
// The catch-all short code route is registered last so fixed paths win.
// Fixed path segments ("shorten", "metrics") are never produced as codes in
// practice; if one were, the fixed route would shadow it.
func NewRouter(h *Handler, enableMetrics bool) *mux.Router {
	r := mux.NewRouter()

	if enableMetrics {
		r.Use(MetricsMiddleware)
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/shorten", h.Shorten).Methods(http.MethodPost)
	r.HandleFunc("/health/live", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", h.ReadyCheck).Methods(http.MethodGet)
	r.HandleFunc("/{shortCode}", h.Redirect).Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	return r
}
