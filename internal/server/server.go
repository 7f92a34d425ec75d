// Package server contains the HTTP API of the engine.
package server

import (
	"context"
	"net/http"
	"time"

	"cartflow/internal/engine"
	"cartflow/internal/server/handlers"
	"cartflow/internal/server/middleware"

	"golang.org/x/time/rate"
)

// Per-tenant trigger throughput. Plenty for storefront webhooks; a
// runaway integration gets 429s instead of flooding the queue.
const (
	triggerRateLimit = rate.Limit(5)
	triggerBurst     = 10
)

// Server is the HTTP server for the engine API.
type Server struct {
	httpServer *http.Server
}

// New creates a new engine API server.
func New(addr string, store handlers.StoreFactory, dispatcher *engine.Dispatcher, metricsHandler http.Handler) *Server {
	h := handlers.New(store, dispatcher)
	authMW := middleware.AuthMiddleware(store)
	rateMW := middleware.RateLimitMiddleware(triggerRateLimit, triggerBurst)

	mux := http.NewServeMux()

	// Onboarding and admin surface
	mux.HandleFunc("POST /tenants", h.CreateTenant)
	mux.HandleFunc("GET /tenants", h.ListTenants)

	// Tenant-scoped APIs
	mux.Handle("POST /triggers", authMW(rateMW(http.HandlerFunc(h.Trigger))))
	mux.Handle("GET /runs", authMW(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /runs/{id}", authMW(http.HandlerFunc(h.GetRun)))

	// Probes and metrics
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
