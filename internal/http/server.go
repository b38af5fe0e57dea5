// Package http provides the HTTP API for kbgateway.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kbgateway/internal/ingest"
	"github.com/fyrsmithlabs/kbgateway/internal/rag"
	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

// Server provides the HTTP endpoints for kbgateway.
type Server struct {
	echo    *echo.Echo
	ingest  *ingest.Service
	rag     *rag.Service
	logger  *zap.Logger
	config  *Config
	allowed map[string]struct{}
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string

	// TenantHeader and ExemptPaths configure tenant resolution.
	TenantHeader string
	ExemptPaths  []string

	// AllowedExtensions is the upload extension allow-list (lower case,
	// leading dot).
	AllowedExtensions []string
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(ingestSvc *ingest.Service, ragSvc *rag.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if ingestSvc == nil {
		return nil, fmt.Errorf("ingest service is required")
	}
	if ragSvc == nil {
		return nil, fmt.Errorf("rag service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	registry := prometheus.NewRegistry()
	metrics := newMetrics(registry)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			// Handler errors have not passed through echo's error handler
			// yet, so the response status is still the default here.
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(metrics.middleware())
	e.Use(tenant.Middleware(tenant.MiddlewareConfig{
		HeaderName:  cfg.TenantHeader,
		ExemptPaths: cfg.ExemptPaths,
	}, logger))

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[ext] = struct{}{}
	}

	s := &Server{
		echo:    e,
		ingest:  ingestSvc,
		rag:     ragSvc,
		logger:  logger,
		config:  cfg,
		allowed: allowed,
	}

	s.registerRoutes(registry)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s.echo.POST("/chat", s.handleChat)
	s.echo.GET("/files", s.handleListFiles)
	s.echo.POST("/files", s.handleUploadFile)
	s.echo.DELETE("/files/:filename", s.handleDeleteFile)
}

// handleRoot returns the service banner.
func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{
		Service: "kbgateway",
		Version: s.config.Version,
		Status:  "ok",
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
