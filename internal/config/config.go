// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	"github.com/allisson/ciphergate/internal/cipher"
	apperrors "github.com/allisson/ciphergate/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// CipherSecret is the shared transport secret. With KMSKeyURI set it is
	// the base64 ciphertext of the secret instead.
	CipherSecret string
	// CipherKDF selects the key derivation mode: "pad" (wire default) or "pbkdf2".
	CipherKDF string
	// KMSKeyURI is an optional gocloud.dev secrets keeper URI used to
	// decrypt CipherSecret at startup (e.g., "hashivault://keyname").
	KMSKeyURI string

	// EncryptedRoutes is a comma-separated list of "METHOD /path" patterns
	// that require transport encryption (e.g., "POST /v1/echo, * /v1/secure/*").
	EncryptedRoutes string

	// RateLimitEnabled indicates whether per-IP rate limiting is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per IP.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for per-IP rate limiting.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// ShutdownTimeout bounds graceful shutdown of the servers.
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Transport cipher
		CipherSecret: env.GetString("CIPHER_SECRET", ""),
		CipherKDF:    env.GetString("CIPHER_KDF", string(cipher.KDFPad)),
		KMSKeyURI:    env.GetString("KMS_KEY_URI", ""),

		// Interception policy
		EncryptedRoutes: env.GetString("ENCRYPTED_ROUTES", "* /v1/*"),

		// Rate limiting (per client IP)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", false),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 10.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 20),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "ciphergate"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// Shutdown
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 30, time.Second),
	}
}

// Validate checks the configuration before any server starts. A missing
// transport secret or an unknown KDF is a ConfigurationError: the gateway
// must never come up able to serve intercepted routes in plaintext.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.CipherSecret, validation.Required),
		validation.Field(&c.CipherKDF, validation.Required, validation.In(
			string(cipher.KDFPad),
			string(cipher.KDFPBKDF2),
		)),
		validation.Field(&c.ServerPort, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.MetricsPort, validation.Min(1), validation.Max(65535)),
	)
	if err != nil {
		return apperrors.Wrap(cipher.ErrConfiguration, err.Error())
	}
	return nil
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
