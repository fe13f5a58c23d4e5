// Package server exposes the state of a running campaign over HTTP.
//
// The server is optional and read-only: /health for liveness, /status for the
// campaign progress as JSON and /metrics for Prometheus scraping.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/a3drift/internal/acquisition"
	"github.com/fyrsmithlabs/a3drift/internal/config"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
)

// StatusFunc returns the current campaign progress.
type StatusFunc func() acquisition.Progress

// Server represents the HTTP server.
type Server struct {
	config  config.MetricsConfig
	echo    *echo.Echo
	status  StatusFunc
	metrics http.Handler
	logger  *logging.Logger
}

// HealthResponse is the JSON response for /health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// New creates a new HTTP server.
//
// The server includes:
//   - Recover and request ID middleware
//   - A request log line per call at debug level
//   - GET /health, GET /status and GET /metrics
//
// metrics may be nil, in which case /metrics is not registered.
func New(cfg config.MetricsConfig, metrics http.Handler, status StatusFunc, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		config:  cfg,
		echo:    e,
		status:  status,
		metrics: metrics,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/status", s.handleStatus)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "a3drift"})
}

func (s *Server) handleStatus(c echo.Context) error {
	if s.status == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no campaign attached")
	}
	return c.JSON(http.StatusOK, s.status())
}

// Start starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
//
// Returns http.ErrServerClosed on graceful shutdown, or any other error
// encountered during startup or shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.echo.Start(s.config.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
