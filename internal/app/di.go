// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/ciphergate/internal/cipher"
	"github.com/allisson/ciphergate/internal/config"
	"github.com/allisson/ciphergate/internal/http"
	"github.com/allisson/ciphergate/internal/interceptor"
	"github.com/allisson/ciphergate/internal/keysource"
	"github.com/allisson/ciphergate/internal/metrics"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	cipherContext   *cipher.Context
	policy          *interceptor.Policy
	metricsProvider *metrics.Provider
	cipherMetrics   metrics.CipherMetrics

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	cipherContextInit   sync.Once
	policyInit          sync.Once
	metricsProviderInit sync.Once
	cipherMetricsInit   sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// CipherContext returns the transport cipher context. The configured secret is
// resolved through the key source (plain value or KMS-wrapped) on first access.
func (c *Container) CipherContext(ctx context.Context) (*cipher.Context, error) {
	c.cipherContextInit.Do(func() {
		cctx, err := c.initCipherContext(ctx)
		if err != nil {
			c.initErrors["cipherContext"] = err
			return
		}
		c.cipherContext = cctx
	})
	if storedErr, exists := c.initErrors["cipherContext"]; exists {
		return nil, storedErr
	}
	return c.cipherContext, nil
}

// Policy returns the route interception policy.
func (c *Container) Policy() (*interceptor.Policy, error) {
	c.policyInit.Do(func() {
		policy, err := interceptor.ParsePolicy(c.config.EncryptedRoutes)
		if err != nil {
			c.initErrors["policy"] = fmt.Errorf("failed to parse encrypted routes: %w", err)
			return
		}
		c.policy = policy
	})
	if storedErr, exists := c.initErrors["policy"]; exists {
		return nil, storedErr
	}
	return c.policy, nil
}

// MetricsProvider returns the metrics provider instance.
// Returns nil without error when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// CipherMetrics returns the interception cycle metrics recorder.
// Returns nil without error when metrics are disabled.
func (c *Container) CipherMetrics() (metrics.CipherMetrics, error) {
	c.cipherMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["cipherMetrics"] = err
			return
		}
		if provider == nil {
			return
		}
		cm, err := metrics.NewCipherMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["cipherMetrics"] = fmt.Errorf("failed to create cipher metrics: %w", err)
			return
		}
		c.cipherMetrics = cm
	})
	if storedErr, exists := c.initErrors["cipherMetrics"]; exists {
		return nil, storedErr
	}
	return c.cipherMetrics, nil
}

// HTTPServer returns the API HTTP server instance.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer(ctx)
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server instance.
// Returns nil without error when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(c.config, c.Logger(), provider)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Zeroize key material last.
	if c.cipherContext != nil {
		c.cipherContext.Close()
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initCipherContext resolves the transport secret and derives the key material.
func (c *Container) initCipherContext(ctx context.Context) (*cipher.Context, error) {
	secret, err := keysource.Resolve(ctx, c.config.CipherSecret, c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transport secret: %w", err)
	}

	cctx, err := cipher.NewWithKDF(secret, cipher.KDF(c.config.CipherKDF))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher context: %w", err)
	}

	return cctx, nil
}

// initHTTPServer creates the API HTTP server with all its dependencies.
func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	logger := c.Logger()

	cctx, err := c.CipherContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher context for http server: %w", err)
	}

	policy, err := c.Policy()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	cipherMetrics, err := c.CipherMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher metrics for http server: %w", err)
	}

	return http.NewServer(c.config, logger, cctx, policy, provider, cipherMetrics), nil
}
