package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/miradorstack/mirador-remediate/internal/config"
)

// Server wraps the HTTP engine and lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
}

// NewServer builds the router and binds it to the configured address.
func NewServer(cfg config.ServerConfig, handlers *Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if cfg.RatePerSecond > 0 {
		router.Use(rateLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst))
	}

	registerRoutes(router, handlers)

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

func registerRoutes(router *gin.Engine, handlers *Handlers) {
	router.GET("/healthz", handlers.Healthz)

	v1 := router.Group("/api/v1/remediate")
	{
		v1.POST("/analyze", handlers.Analyze)
		v1.GET("/plans/:id", handlers.GetPlan)
		v1.POST("/plans/:id/deploy", handlers.DeployPlan)
		v1.GET("/deployments", handlers.ListDeployments)
		v1.GET("/deployments/:id", handlers.GetDeployment)
		v1.POST("/deployments/:id/cancel", handlers.CancelDeployment)
		v1.GET("/health", handlers.Health)
		v1.GET("/audit", handlers.Audit)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}

func rateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = int(limit)
	}
	limiter := rate.NewLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
