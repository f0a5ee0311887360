package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/rootscan/internal/progress/sinks"
	"github.com/JakeFAU/rootscan/internal/store"
)

// StatsSource yields the live counters for the current run.
type StatsSource interface {
	Snapshot() sinks.Snapshot
}

// Sizer reports how many domains are still queued.
type Sizer interface {
	Len() int
}

// Options wires the server's collaborators. Runs may be nil, in which case
// the run lookup route answers 503.
type Options struct {
	Stats    StatsSource
	Queue    Sizer
	Runs     store.RunRepository
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// Server exposes health, metrics, and progress routes.
type Server struct {
	router   chi.Router
	stats    StatsSource
	queue    Sizer
	runs     *RunHandler
	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewServer builds the router. It registers request metrics on opts.Registry.
func NewServer(opts Options) (*Server, error) {
	if opts.Stats == nil || opts.Queue == nil {
		return nil, errors.New("stats and queue are required")
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	metrics, err := newRequestMetrics(opts.Registry)
	if err != nil {
		return nil, err
	}
	s := &Server{
		stats:    opts.Stats,
		queue:    opts.Queue,
		runs:     NewRunHandler(opts.Runs, opts.Logger),
		registry: opts.Registry,
		logger:   opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(opts.Logger))
	r.Use(recoverMiddleware(opts.Logger))
	r.Use(metrics.middleware)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/progress", s.progress)
		r.Get("/runs/{run_id}", s.runs.GetRun)
	})

	s.router = r
	return s, nil
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type progressDTO struct {
	sinks.Snapshot
	Remaining int `json:"remaining"`
}

func (s *Server) progress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, progressDTO{
		Snapshot:  s.stats.Snapshot(),
		Remaining: s.queue.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
