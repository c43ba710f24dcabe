package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/ciphergate/internal/cipher"
	"github.com/allisson/ciphergate/internal/config"
	"github.com/allisson/ciphergate/internal/httputil"
	"github.com/allisson/ciphergate/internal/interceptor"
	"github.com/allisson/ciphergate/internal/metrics"
)

// Server represents the API HTTP server carrying intercepted traffic.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer builds the API server: common middleware first, then the
// transport-encryption interceptor on the /v1 group, then the handlers.
// meterProvider and cipherMetrics may be nil when metrics are disabled.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	cipherCtx *cipher.Context,
	policy *interceptor.Policy,
	meterProvider *metrics.Provider,
	cipherMetrics metrics.CipherMetrics,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.RateLimitEnabled {
		router.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, logger))
	}

	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", healthHandler)
	router.GET("/ready", readinessHandler(cipherCtx))

	// All /v1 traffic passes the interceptor; the policy decides per route
	// whether the cipher is applied.
	v1 := router.Group("/v1")
	v1.Use(interceptor.Middleware(cipherCtx, policy, cipherMetrics, logger))
	v1.POST("/echo", echoHandler(logger))
	v1.GET("/inspect", inspectHandler)
	v1.POST("/inspect", inspectBodyHandler(logger))

	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the API HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness: the server must never accept traffic
// without a usable cipher context.
func readinessHandler(cipherCtx *cipher.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cipherCtx == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"components": gin.H{"cipher": "error"},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"components": gin.H{"cipher": "ok"},
		})
	}
}

// echoHandler returns the request body unchanged. On intercepted routes the
// interceptor has already decrypted the body and will re-encrypt the echo, so
// this doubles as an end-to-end loopback check for clients.
func echoHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			return
		}

		contentType := c.ContentType()
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Data(http.StatusOK, contentType, body)
	}
}

// inspectHandler reflects the decrypted query parameters back as JSON.
func inspectHandler(c *gin.Context) {
	params := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	c.JSON(http.StatusOK, gin.H{"query": params})
}

// inspectBodyHandler reports what the handler observed of the request body,
// without echoing the payload itself.
func inspectBodyHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"body_size":    len(body),
			"content_type": c.ContentType(),
		})
	}
}
