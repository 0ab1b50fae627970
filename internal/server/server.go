// Package server exposes the tests service over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of a TestsService.
type Server struct {
	svc     *service.TestsService
	cfg     config.ServerConfig
	log     *logrus.Logger
	limiter *ipRateLimiter
}

// New creates a Server. A non-positive rate limit disables limiting.
func New(svc *service.TestsService, cfg config.ServerConfig, log *logrus.Logger) *Server {
	s := &Server{svc: svc, cfg: cfg, log: log}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return s
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(requireMaster)
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Post("/runs", s.handleRun)
		r.Post("/runs/batch", s.handleRunBatch)
		r.Post("/runs/draft", s.handleRunDraft)
	})

	r.Route("/tests", func(r chi.Router) {
		r.Get("/", s.handleListTests)
		r.With(requireMaster).Get("/spec-files", s.handleSpecFiles)
		r.Get("/{testId}", s.handleGetTest)
		r.With(requireMaster).Post("/{testId}/versions", s.handleSaveVersion)
		r.With(requireMaster).Post("/{testId}/publish", s.handlePublish)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/", s.handleListReports)
		r.Get("/{id}", s.handleGetReport)
		r.With(requireMaster).Delete("/{id}", s.handleDeleteReport)
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return domain.NewErrorWithSuggestion(domain.PhaseServe, "", 0,
			"failed to listen on "+s.cfg.Addr, "choose another address with server.addr or PORT", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Infof("Serving HTTP on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return domain.NewError(domain.PhaseServe, "", 0, "shutdown failed", err)
		}
		return nil
	case err, ok := <-serverErr:
		if !ok {
			return nil
		}
		return domain.NewError(domain.PhaseServe, "", 0, "server stopped", err)
	}
}
