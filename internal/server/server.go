// Package server runs the HTTP listener and stops it together with the
// background components registered on it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc stops a component within the deadline carried by ctx.
type ShutdownFunc func(ctx context.Context) error

// Config holds the listener settings.
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type component struct {
	name string
	stop ShutdownFunc
}

// Server wraps http.Server with ordered shutdown of registered components.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu         sync.Mutex
	components []component
}

// New creates a Server for handler.
func New(handler http.Handler, cfg Config, logger *slog.Logger) *Server {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 2 * cfg.ReadTimeout
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       idle,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers fn to run after the listener stops. Components stop
// in reverse registration order.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = append(s.components, component{name: name, stop: fn})
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// listener fails. It then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return errors.Join(fmt.Errorf("listen: %w", err), s.stopComponents())
		}
		return s.stopComponents()
	case <-ctx.Done():
		s.logger.Info("shutdown requested", "cause", context.Cause(ctx))
		return s.Shutdown()
	}
}

// Shutdown stops the listener and then every registered component, sharing
// one shutdown deadline. All errors are returned joined.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	var httpErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", "error", err)
		httpErr = fmt.Errorf("http: %w", err)
	}

	return errors.Join(httpErr, s.stopComponentsCtx(ctx))
}

func (s *Server) stopComponents() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.stopComponentsCtx(ctx)
}

func (s *Server) stopComponentsCtx(ctx context.Context) error {
	s.mu.Lock()
	components := append([]component(nil), s.components...)
	s.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.stop(ctx); err != nil {
			s.logger.Error("component shutdown failed", "name", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		s.logger.Info("component stopped", "name", c.name)
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
