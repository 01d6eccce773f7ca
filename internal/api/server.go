// Package api provides the HTTP surface for TrailScout.
//
// It exposes the chat endpoint, user and gear management, a preference
// inspection endpoint, and the admin thread-reset operation.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/TrailPeak/TrailScout/internal/orchestrator"
	"github.com/TrailPeak/TrailScout/internal/store"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for server construction.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires HTTP handlers to the store and the orchestrator.
type Server struct {
	st   store.Store
	orch *orchestrator.Orchestrator
	addr string
}

// NewServer creates an API server.
func NewServer(st store.Store, orch *orchestrator.Orchestrator, opts ...Option) *Server {
	cfg := Opts{Addr: ":8080"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{st: st, orch: orch, addr: cfg.Addr}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.chatHandler)
	mux.HandleFunc("POST /users", s.createUserHandler)
	mux.HandleFunc("GET /users/{id}/preferences", s.getPreferencesHandler)
	mux.HandleFunc("POST /users/{id}/gear", s.addGearHandler)
	mux.HandleFunc("POST /admin/users/{id}/reset-thread", s.resetThreadHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server.Run: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
