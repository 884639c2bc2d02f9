package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	config "ftmgedf/configs"
	"ftmgedf/pkg/api/middleware"
	"ftmgedf/pkg/auth"
	"ftmgedf/pkg/coordination"
	tracing "ftmgedf/pkg/observability"
	"ftmgedf/pkg/storage"
)

// Server encapsulates the HTTP API server and its dependencies.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server

	runStore    storage.RunStore
	queue       storage.Queue
	coordinator coordination.Coordinator
	validator   *middleware.Validator
	defaultCfg  *config.Config
	tracer      *tracing.Provider
}

// Config holds API server configuration.
type Config struct {
	Port        string
	RunStore    storage.RunStore
	Queue       storage.Queue
	Coordinator coordination.Coordinator
	Defaults    *config.Config

	// AuthEnabled gates the JWT/API-key middleware on the /api/v1 routes.
	// JWTService and APIKeyStore may be nil when the corresponding auth
	// method is not configured; AuthMiddleware tries each independently.
	AuthEnabled bool
	JWTService  *auth.JWTService
	APIKeyStore auth.APIKeyStore

	Tracer *tracing.Provider
}

// NewServer creates a new API server with all dependencies.
func NewServer(cfg Config) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware stack (order matters)
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())       // Request tracing
	router.Use(middleware.SecurityHeadersMiddleware()) // Security headers
	router.Use(middleware.MetricsMiddleware())         // HTTP metrics
	router.Use(requestLogger())
	router.Use(middleware.RateLimitMiddleware()) // Rate limiting: 100 requests/min per client

	vcfg := middleware.DefaultValidatorConfig()
	router.Use(middleware.BodySizeLimitMiddleware(vcfg.MaxBodySize))

	s := &Server{
		router:      router,
		runStore:    cfg.RunStore,
		queue:       cfg.Queue,
		coordinator: cfg.Coordinator,
		validator:   middleware.NewValidator(vcfg),
		defaultCfg:  cfg.Defaults,
		tracer:      cfg.Tracer,
	}

	if s.tracer != nil {
		router.Use(s.tracingMiddleware())
	}

	// Register routes
	s.registerRoutes(cfg)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	log.Printf("[API] Starting server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[API] Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes(cfg Config) {
	// Health check
	s.router.GET("/health", s.healthCheck)

	// Prometheus metrics endpoint
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	if cfg.AuthEnabled {
		v1.Use(middleware.AuthMiddleware(middleware.AuthConfig{
			JWTService:  cfg.JWTService,
			APIKeyStore: cfg.APIKeyStore,
		}))
	}
	{
		// Runs
		runs := v1.Group("/runs")
		{
			runs.POST("", s.createRun)
			runs.GET("", s.listRuns)
			runs.GET("/:id", s.getRun)
			if cfg.AuthEnabled {
				runs.POST("/:id/cancel", middleware.RequireRole(auth.RoleOperator), s.cancelRun)
			} else {
				runs.POST("/:id/cancel", s.cancelRun)
			}
		}

		// Cluster
		cluster := v1.Group("/cluster")
		{
			cluster.GET("/nodes", s.listNodes)
			cluster.GET("/leader", s.getLeader)
		}
	}
}

// tracingMiddleware starts one span per HTTP request, ending it with the
// response status once the handler chain completes.
func (s *Server) tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := s.tracer.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		span.End()
	}
}

// requestLogger is a middleware that logs HTTP requests.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log.Printf("[API] %s %s %d %v", c.Request.Method, path, status, latency)
	}
}

// healthCheck returns server health status with dependency checks.
func (s *Server) healthCheck(c *gin.Context) {
	// Check all critical dependencies
	deps := make(map[string]bool)

	// Check database (via store interface)
	deps["postgres"] = s.runStore != nil

	// Check queue
	deps["redis"] = s.queue != nil

	// Check coordinator
	deps["etcd"] = s.coordinator != nil

	// Determine overall health
	healthy := true
	for _, ok := range deps {
		if !ok {
			healthy = false
			break
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UTC(),
	})
}
