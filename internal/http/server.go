package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	deadletterHTTP "github.com/allisson/payments/internal/deadletter/http"
	paymentHTTP "github.com/allisson/payments/internal/payment/http"
)

// Config holds the HTTP server configuration
type Config struct {
	Host                    string
	Port                    int
	GinMode                 string
	CORSEnabled             bool
	CORSAllowOrigins        string
	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int
}

// Handlers groups the route handlers the server exposes
type Handlers struct {
	Payment    *paymentHTTP.PaymentHandler
	DeadLetter *deadletterHTTP.DeadLetterHandler
}

// Server represents the API HTTP server
type Server struct {
	server       *http.Server
	logger       *slog.Logger
	shuttingDown atomic.Bool
}

// NewServer creates a new HTTP server with all routes and middleware wired
func NewServer(
	config Config,
	handlers Handlers,
	metricsMiddleware gin.HandlerFunc,
	logger *slog.Logger,
) *Server {
	gin.SetMode(config.GinMode)

	server := &Server{logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(config.CORSEnabled, config.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if config.RateLimitEnabled {
		router.Use(RateLimitMiddleware(config.RateLimitRequestsPerSec, config.RateLimitBurst, logger))
	}
	if metricsMiddleware != nil {
		router.Use(metricsMiddleware)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if server.shuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/payments", handlers.Payment.ProcessHandler)
		v1.GET("/payments/:id", handlers.Payment.GetHandler)

		v1.GET("/dead-letters", handlers.DeadLetter.ListHandler)
		v1.GET("/dead-letters/:id", handlers.DeadLetter.GetHandler)
		v1.POST("/dead-letters/:id/requeue", handlers.DeadLetter.RequeueHandler)
		v1.DELETE("/dead-letters/:id", handlers.DeadLetter.DeleteHandler)
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	s.shuttingDown.Store(true)
	return s.server.Shutdown(ctx)
}
