package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the frame endpoints, /health and /metrics. extra
// middleware (e.g. shutdown tracking) runs inside the default chain.
func NewRouter(h *FrameHandler, extra ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.Use(mux.MiddlewareFunc(DefaultMiddleware()))
	r.Use(extra...)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", h.stats.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/frames", h.Create).Methods(http.MethodPost)
	v1.HandleFunc("/frames", h.List).Methods(http.MethodGet)
	v1.HandleFunc("/frames/{id}", h.Get).Methods(http.MethodGet)
	v1.HandleFunc("/frames/{id}", h.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/frames/{id}/columns", h.AddColumn).Methods(http.MethodPost)
	v1.HandleFunc("/frames/{id}/merge", h.Merge).Methods(http.MethodPost)
	v1.HandleFunc("/frames/{id}/restrict", h.Restrict).Methods(http.MethodPost)
	v1.HandleFunc("/frames/{id}/filter", h.Filter).Methods(http.MethodPost)
	v1.HandleFunc("/frames/{id}/aggregate", h.Aggregate).Methods(http.MethodPost)
	v1.HandleFunc("/stats/columns", h.TopColumns).Methods(http.MethodGet)

	return r
}

// Health handles GET /health.
func (h *FrameHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"frames": h.registry.Len(),
	})
}
