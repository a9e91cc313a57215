// Package healthapi exposes the minimal HTTP surface spec.md §7 calls
// the "telemetry collaborator": a liveness probe and the per-kind error
// counters, trimmed from the teacher's chi router (cmd/server/main.go)
// down to the two routes this domain needs — there is no GraphQL schema
// to serve here (§1, out of scope).
package healthapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/bbernstein/ledscene-go/internal/engine"
	"github.com/bbernstein/ledscene-go/internal/telemetry"
)

// Server wraps the health/metrics HTTP handler.
type Server struct {
	httpServer *http.Server
}

// New builds the router: request-id + recoverer middleware and a
// permissive CORS wrapper, matching the teacher's router setup.
func New(addr string, manager *engine.Manager, counters *telemetry.Counters) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/healthz", healthzHandler)
	router.Get("/metrics", metricsHandler(manager, counters))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Start runs the HTTP server in a background goroutine. Bind errors
// other than a clean shutdown are reported on the returned channel,
// matching the teacher's fire-and-forget ListenAndServe goroutine.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(ctx)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func metricsHandler(manager *engine.Manager, counters *telemetry.Counters) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"counters":  counters.Snapshot(),
			"paused":    manager.IsPaused(),
			"speed_pct": manager.SpeedPercent(),
			"fps":       manager.CurrentFPS(),
			"led_count": manager.CurrentLEDCount(),
		})
	}
}
