package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aibridge-dev/aibridge/internal/session"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

// DebugServer is an optional HTTP endpoint for local inspection of the
// running broker. It never carries prompt traffic.
type DebugServer struct {
	registry *session.Registry
	httpSrv  *http.Server
}

// NewDebugServer builds the debug HTTP server for addr.
func (s *Server) NewDebugServer(addr string) *DebugServer {
	d := &DebugServer{registry: s.registry}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/health", d.health)
	r.Get("/sessions", d.sessions)

	d.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
	}
	return d
}

// ListenAndServe blocks serving the debug endpoint.
func (d *DebugServer) ListenAndServe() error {
	return d.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the debug endpoint.
func (d *DebugServer) Shutdown(ctx context.Context) error {
	return d.httpSrv.Shutdown(ctx)
}

// Handler exposes the router, for tests.
func (d *DebugServer) Handler() http.Handler {
	return d.httpSrv.Handler
}

func (d *DebugServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"name":    Name,
		"version": Version,
	})
}

func (d *DebugServer) sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := d.registry.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []types.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
