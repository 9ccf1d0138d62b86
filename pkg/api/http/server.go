package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/internal/application/workers"
	"github.com/aescanero/classflow/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// JobService is the orchestration surface behind the API.
// *orchestrator.Manager implements it.
type JobService interface {
	Plan(ctx context.Context, request string, options map[string]any) (*domain.Job, error)
	Run(ctx context.Context, job *domain.Job) (*orchestrator.RunResult, error)
	Resume(ctx context.Context, jobID string) (*orchestrator.RunResult, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobsByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error)
	Reflect(job *domain.Job) domain.Summary
	Registry() *orchestrator.Registry
}

// JobSubmitter queues asynchronous runs. *workers.Pool implements it.
type JobSubmitter interface {
	Submit(ctx context.Context, jobID string) error
}

// HealthReporter reports worker pool health.
type HealthReporter interface {
	GetStatus() *workers.HealthStatus
}

// Server represents the HTTP API server
type Server struct {
	router    *gin.Engine
	server    *http.Server
	jobs      JobService
	submitter JobSubmitter
	health    HealthReporter
	logger    *zap.Logger
	now       func() time.Time
}

// Config holds HTTP server configuration
type Config struct {
	Port      int
	Jobs      JobService
	Submitter JobSubmitter        // optional; /resume answers 503 without it
	Health    HealthReporter      // optional
	Gatherer  prometheus.Gatherer // defaults to the global registry
	Logger    *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:    router,
		jobs:      cfg.Jobs,
		submitter: cfg.Submitter,
		health:    cfg.Health,
		logger:    logger,
		now:       time.Now,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	metrics := promhttp.Handler()
	if gatherer != nil {
		metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	s.router.GET("/metrics", gin.WrapH(metrics))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/jobs", s.handleCreateJob)
		v1.GET("/jobs", s.handleListJobs)
		v1.GET("/jobs/:id", s.handleGetJob)
		v1.GET("/jobs/:id/summary", s.handleGetSummary)
		v1.POST("/jobs/:id/run", s.handleRunJob)
		v1.POST("/jobs/:id/resume", s.handleResumeJob)

		v1.GET("/actions", s.handleListActions)
	}
}

// StreamHandler serves a per-job event stream
type StreamHandler interface {
	HandleJobStream(c *gin.Context)
}

// SetupWebSocket adds the WebSocket event stream to the server
func (s *Server) SetupWebSocket(handler StreamHandler) {
	s.router.GET("/api/v1/jobs/:id/ws", handler.HandleJobStream)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
