package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/AntoineGS/swselect/internal/software"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server serves one controller. Every controller call goes through the loop
// the controller dispatches to.
type Server struct {
	ctrl   *software.Controller
	loop   *Loop
	reload func(ctx context.Context) error
	logger *slog.Logger
}

// Option customizes Server construction.
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithReload enables POST /reload.
func WithReload(reload func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.reload = reload
	}
}

// NewServer creates a Server. loop must be the dispatcher ctrl was created
// with.
func NewServer(ctrl *software.Controller, loop *Loop, opts ...Option) *Server {
	s := &Server{
		ctrl:   ctrl,
		loop:   loop,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Router returns the HTTP routes under /api/v1.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	apiRouter.HandleFunc("/environment", s.handleSelectEnvironment).Methods(http.MethodPut)
	apiRouter.HandleFunc("/addons/{id}/toggle", s.handleToggleAddon).Methods(http.MethodPost)
	apiRouter.HandleFunc("/apply", s.handleApply).Methods(http.MethodPost)
	apiRouter.HandleFunc("/changes", s.handleChanges).Methods(http.MethodGet)
	apiRouter.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	apiRouter.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)

	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving API: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}

	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("api request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// do runs fn on the loop, answering 503 when the loop is gone.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := s.loop.Do(r.Context(), fn); err != nil {
		respondError(w, http.StatusServiceUnavailable, "selection screen is not running")
		return false
	}

	return true
}
