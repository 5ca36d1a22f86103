// Package api exposes the processing pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
	"github.com/labseries-server/internal/middleware"
	"github.com/labseries-server/internal/registry"
	"github.com/labseries-server/internal/service"
)

// HealthChecker reports backend liveness for the health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server is the HTTP server over the processing pipeline.
type Server struct {
	cfg        domain.ServerConfig
	router     *gin.Engine
	server     *http.Server
	log        *logrus.Logger
	registry   *registry.Registry
	aggregator *service.Aggregator
	series     *service.SeriesBuilder
	insights   *service.InsightsEngine
	store      domain.ReportStore
	timeline   domain.TimelineStore
	db         HealthChecker
}

// NewServer creates a new HTTP server instance.
func NewServer(
	cfg domain.ServerConfig,
	logLevel string,
	reg *registry.Registry,
	aggregator *service.Aggregator,
	series *service.SeriesBuilder,
	insights *service.InsightsEngine,
	store domain.ReportStore,
	timeline domain.TimelineStore,
	db HealthChecker,
	logger *logrus.Logger,
) *Server {
	if logLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	if cfg.RateLimit > 0 {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Handler())
	}

	s := &Server{
		cfg:        cfg,
		router:     router,
		log:        logger,
		registry:   reg,
		aggregator: aggregator,
		series:     series,
		insights:   insights,
		store:      store,
		timeline:   timeline,
		db:         db,
	}

	s.setupRoutes()
	return s
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/metrics", s.handleListMetrics)
		v1.POST("/subjects/:subjectID/reports", s.handleSubmitReport)
		v1.GET("/subjects/:subjectID/reports", s.handleListReports)
		v1.GET("/subjects/:subjectID/series/:metric", s.handleGetSeries)
		v1.GET("/subjects/:subjectID/scores/:score", s.handleGetScore)
		v1.GET("/subjects/:subjectID/timeline", s.handleGetTimeline)
		v1.GET("/reports/:id", s.handleGetReport)
	}
}

// handleHealth reports service and backend health.
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "healthy"
	if s.db != nil {
		if err := s.db.Health(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unreachable"
		}
	}

	c.JSON(status, gin.H{
		"status":    dbStatus,
		"timestamp": time.Now().UTC(),
	})
}

// corsMiddleware adds CORS headers to responses.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
