package app

import (
	"testing"

	"github.com/allisson/ciphergate/internal/cipher"
	"github.com/allisson/ciphergate/internal/config"
)

// TestNewContainer verifies that a new container can be created with a valid configuration.
func TestNewContainer(t *testing.T) {
	cfg := &config.Config{
		LogLevel:        "info",
		ServerHost:      "localhost",
		ServerPort:      8080,
		CipherSecret:    "test-secret",
		CipherKDF:       string(cipher.KDFPad),
		EncryptedRoutes: "* /v1/*",
	}

	container := NewContainer(cfg)

	if container == nil {
		t.Fatal("expected non-nil container")
	}

	if container.Config() != cfg {
		t.Error("container config does not match provided config")
	}
}

// TestContainerLogger verifies that the logger can be retrieved from the container.
func TestContainerLogger(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "debug",
	}

	container := NewContainer(cfg)
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	// Calling Logger() again should return the same instance (singleton)
	logger2 := container.Logger()
	if logger != logger2 {
		t.Error("expected same logger instance on multiple calls")
	}
}

// TestContainerCipherContext verifies lazy cipher context construction.
func TestContainerCipherContext(t *testing.T) {
	cfg := &config.Config{
		CipherSecret: "test-secret",
		CipherKDF:    string(cipher.KDFPad),
	}

	container := NewContainer(cfg)

	cctx, err := container.CipherContext(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cctx == nil {
		t.Fatal("expected non-nil cipher context")
	}

	cctx2, err := container.CipherContext(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cctx != cctx2 {
		t.Error("expected same cipher context instance on multiple calls")
	}
}

// TestContainerInitializationErrors verifies that initialization errors are properly handled.
func TestContainerInitializationErrors(t *testing.T) {
	cfg := &config.Config{
		CipherSecret: "",
		CipherKDF:    string(cipher.KDFPad),
	}

	container := NewContainer(cfg)

	if _, err := container.CipherContext(t.Context()); err == nil {
		t.Error("expected error for empty transport secret")
	}

	// The error should persist on subsequent calls.
	if _, err := container.CipherContext(t.Context()); err == nil {
		t.Error("expected persisted error on second call")
	}
}

// TestContainerPolicy verifies policy parsing through the container.
func TestContainerPolicy(t *testing.T) {
	container := NewContainer(&config.Config{EncryptedRoutes: "POST /v1/echo"})

	policy, err := container.Policy()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !policy.Requires("POST", "/v1/echo") {
		t.Error("expected policy to cover POST /v1/echo")
	}
	if policy.Requires("GET", "/v1/echo") {
		t.Error("expected policy to skip GET /v1/echo")
	}
}

func TestContainerPolicyInvalidPattern(t *testing.T) {
	container := NewContainer(&config.Config{EncryptedRoutes: "bogus"})

	if _, err := container.Policy(); err == nil {
		t.Error("expected error for invalid route pattern")
	}
}

// TestContainerMetricsDisabled verifies nil components when metrics are off.
func TestContainerMetricsDisabled(t *testing.T) {
	container := NewContainer(&config.Config{MetricsEnabled: false})

	provider, err := container.MetricsProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != nil {
		t.Error("expected nil metrics provider when metrics are disabled")
	}

	server, err := container.MetricsServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server != nil {
		t.Error("expected nil metrics server when metrics are disabled")
	}
}

// TestContainerHTTPServer verifies full server assembly.
func TestContainerHTTPServer(t *testing.T) {
	cfg := &config.Config{
		LogLevel:         "info",
		ServerHost:       "localhost",
		ServerPort:       8080,
		CipherSecret:     "test-secret",
		CipherKDF:        string(cipher.KDFPad),
		EncryptedRoutes:  "* /v1/*",
		MetricsEnabled:   true,
		MetricsNamespace: "ciphergate",
		MetricsPort:      8081,
	}

	container := NewContainer(cfg)
	defer func() {
		if err := container.Shutdown(t.Context()); err != nil {
			t.Errorf("shutdown error: %v", err)
		}
	}()

	server, err := container.HTTPServer(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server == nil {
		t.Fatal("expected non-nil http server")
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metricsServer == nil {
		t.Fatal("expected non-nil metrics server")
	}
}
