// Package server exposes the schema pipeline and project versions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/schemadoc"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Config holds configuration for the API server.
type Config struct {
	Addr string
	// Service enables the project routes. Nil serves only the stateless
	// pipeline routes.
	Service *schemadoc.Service
	Logger  *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	addr    string
	service *schemadoc.Service
	logger  *slog.Logger
}

// New creates a new API server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:    cfg.Addr,
		service: cfg.Service,
		logger:  logger,
	}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dialects", s.handleDialects)
		r.Post("/parse", s.handleParse)
		r.Post("/diff", s.handleDiff)
		r.Post("/ddl", s.handleDDL)

		if s.service == nil {
			return
		}
		r.Get("/projects", s.handleProjects)
		r.Route("/projects/{project}", func(r chi.Router) {
			r.Get("/versions", s.handleListVersions)
			r.Post("/versions", s.handleCommitVersion)
			r.Get("/versions/{number}", s.handleGetVersion)
			r.Get("/draft", s.handleGetDraft)
			r.Put("/draft", s.handleSaveDraft)
			r.Get("/diff", s.handleProjectDiff)
			r.Get("/ddl", s.handleProjectDDL)
		})
	})

	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting API server", "addr", s.addr, "projects", s.service != nil)

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
