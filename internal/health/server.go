// Package health serves liveness and quota endpoints for process monitors.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
)

const (
	serviceName     = "expensesbot"
	shutdownTimeout = 10 * time.Second
)

// QuotaReporter exposes the remote service quota.
type QuotaReporter interface {
	Status() llm.RateLimitStatus
}

// Server is the HTTP health server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	quota      QuotaReporter
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates a server listening on addr. quota may be nil, in which
// case /quota is not registered.
func NewServer(addr string, quota QuotaReporter, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		router: router,
		quota:  quota,
		logger: common.OrDefault(logger),
		now:    time.Now,
	}
	router.Use(gin.Recovery(), s.requestLogger())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": s.now().UTC().Format(time.RFC3339),
			"service":   serviceName,
		})
	})

	if s.quota != nil {
		s.router.GET("/quota", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.quota.Status())
		})
	}
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("health request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Health check server running", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health server forced to shutdown: %w", err)
	}
	s.logger.Info("Health check server stopped")
	return nil
}
