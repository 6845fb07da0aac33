// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the submission HTTP API, health endpoints and metrics.
// The /api/v1 routes and their parameter binding are generated from
// openapi.yaml.
package api

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen --config=oapi-codegen.yaml openapi.yaml

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/isic-scoring/internal/health"
	"github.com/ManuGH/isic-scoring/internal/jobs"
	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/metrics"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/scorer"
	"github.com/ManuGH/isic-scoring/internal/store"
)

// Queue accepts asynchronous submissions.
type Queue interface {
	Submit(ctx context.Context, job jobs.Job) (string, error)
}

// Store reads submission records.
type Store interface {
	Get(ctx context.Context, id string) (*store.Submission, error)
	List(ctx context.Context, limit int) ([]*store.Submission, error)
}

// Scorer scores a request synchronously.
type Scorer interface {
	Score(ctx context.Context, req scorer.Request) (scorer.Result, error)
}

// Config controls the HTTP surface.
type Config struct {
	// MaxUploadBytes caps a multipart request body.
	MaxUploadBytes int64
	// ScratchDir is where uploads are staged ("" = os.TempDir()).
	ScratchDir string
	// RequireManuscript is the default when a request omits require_manuscript.
	RequireManuscript bool

	RateLimitEnabled  bool
	RequestsPerMinute int
	// SyncScoresPerMinute is shared by all clients of the synchronous score
	// endpoint; 0 disables the global limit.
	SyncScoresPerMinute int
	SyncBurst           int

	// TracingService names the otelhttp spans; empty disables HTTP tracing.
	TracingService string

	// TruthDir resolves the ground truth directory of a task for synchronous scoring.
	TruthDir func(score.Task) string
}

// Deps are the collaborators behind the handlers.
type Deps struct {
	Queue  Queue
	Store  Store
	Scorer Scorer
	Health *health.Manager
}

// Server owns the router and implements the generated ServerInterface.
type Server struct {
	cfg    Config
	deps   Deps
	router chi.Router

	// scoreGate fronts the synchronous score handler with the global limit.
	scoreGate http.Handler
}

// New builds the router with the middleware stack and all routes.
func New(cfg Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	if cfg.RateLimitEnabled && cfg.SyncScoresPerMinute > 0 {
		s.scoreGate = GlobalLimit(cfg.SyncScoresPerMinute, cfg.SyncBurst)(http.HandlerFunc(s.scoreSync))
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(metrics.HTTPMiddleware())
	if s.cfg.TracingService != "" {
		r.Use(Tracing(s.cfg.TracingService))
	}
	r.Use(log.Middleware())

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/api/v1/openapi.yaml", serveOpenAPI)
	r.Group(func(r chi.Router) {
		if s.cfg.RateLimitEnabled && s.cfg.RequestsPerMinute > 0 {
			r.Use(RateLimit(s.cfg.RequestsPerMinute))
		}
		HandlerWithOptions(s, ChiServerOptions{
			BaseRouter:       r,
			ErrorHandlerFunc: s.paramError,
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "route/not_found", "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "route/method_not_allowed", "Method Not Allowed", "")
	})
	return r
}
