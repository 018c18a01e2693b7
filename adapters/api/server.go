// Package api exposes the estimators and comparison runs over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gostamp/app"
	"gostamp/internal"
	"gostamp/internal/metrics"
)

// Server represents the HTTP server for the comparison API
type Server struct {
	router  *gin.Engine
	service *app.ComparisonService
	metrics *metrics.Metrics
	logger  *internal.Logger
}

// NewServer wires routes and middleware. m may be nil to disable /metrics.
func NewServer(service *app.ComparisonService, m *metrics.Metrics, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  gin.New(),
		service: service,
		metrics: m,
		logger:  logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.observe())
}

// observe logs each request and records its latency by route template
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		s.metrics.ObserveHTTP(route, c.Request.Method, strconv.Itoa(status), elapsed)
		s.logger.Debug("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, status, elapsed)
	}
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.GET("/methods", s.handleMethods)

	v1.POST("/two-group/:name", s.handleTwoGroupTest)
	v1.POST("/ci/:name", s.handleConfidenceInterval)
	v1.POST("/effect-size/:name", s.handleEffectSize)
	v1.POST("/correction/:name", s.handleCorrection)
	v1.POST("/multi-group/:name", s.handleMultiGroupTest)
	v1.POST("/post-hoc/:name", s.handlePostHoc)
	v1.POST("/pca", s.handlePCA)

	v1.POST("/compare", s.handleCompare)
	v1.POST("/compare/multi-group", s.handleCompareMultiGroup)

	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/runs/:id/report", s.handleRunReport)
	v1.GET("/runs/:id/export", s.handleRunExport)
	v1.GET("/features/:key/runs", s.handleFeatureHistory)
}

// Handler exposes the router for tests and custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting gostamp API on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
