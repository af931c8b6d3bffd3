// Package api exposes the screening service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/middleware"
	"github.com/pcos-screening-server/internal/service"
)

// Classifier is the service surface the HTTP handlers depend on.
type Classifier interface {
	Screen(ctx context.Context, req service.ScreenRequest) (*domain.ScreeningRecord, error)
	Get(ctx context.Context, id string) (*domain.ScreeningRecord, error)
	History(ctx context.Context, userID string, limit, offset int) (*domain.HistoryPage, error)
	Rules() service.RuleSetDescription
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithHealthCheck registers a dependency probe reported by /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	classifier    Classifier
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	version       string
	checks        map[string]HealthCheck
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, classifier Classifier, logger *logrus.Logger, opts ...Option) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	server := &Server{
		configManager: configManager,
		classifier:    classifier,
		logger:        logger,
		router:        router,
		version:       "dev",
		checks:        make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetConfig().Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/classify", s.handleClassify)
		v1.GET("/screenings/:id", s.handleGetScreening)
		v1.GET("/history", s.handleHistory)
		v1.GET("/rules", s.handleRules)
	}
}
