// Package api serves the task service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/todo/internal/tasks/application"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

// Server is the HTTP API server for tasks.
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	logger   *slog.Logger
	handler  *TaskHandler
	health   *observability.HealthRegistry
	registry *prometheus.Registry
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithHealth serves registry at /health instead of a static answer.
func WithHealth(registry *observability.HealthRegistry) Option {
	return func(s *Server) { s.health = registry }
}

// WithPrometheus records request metrics in registry and serves it at
// /metrics.
func WithPrometheus(registry *prometheus.Registry) Option {
	return func(s *Server) { s.registry = registry }
}

// NewServer creates a new task API server.
func NewServer(cfg ServerConfig, tasks application.TaskService, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:  gin.New(),
		logger:  logger,
		handler: NewTaskHandler(tasks, logger),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery(), RequestContext(), RequestLogger(logger))
	if s.registry != nil {
		s.engine.Use(NewHTTPMetrics(s.registry, "todo").Middleware())
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	if s.registry != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/api/v1")
	tasks := v1.Group("/tasks")
	tasks.GET("", s.handler.List)
	tasks.POST("", s.handler.Create)
	tasks.DELETE("", s.handler.DeleteAll)
	tasks.POST("/clear-completed", s.handler.ClearCompleted)
	tasks.GET("/:id", s.handler.Get)
	tasks.PUT("/:id", s.handler.Replace)
	tasks.DELETE("/:id", s.handler.Delete)
	tasks.POST("/:id/complete", s.handler.Complete)
	tasks.POST("/:id/activate", s.handler.Activate)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		s.health.Handler().ServeHTTP(c.Writer, c.Request)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting task API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down task API server")
	return s.server.Shutdown(ctx)
}
