package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ciphergate/internal/cipher"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Load()

		assert.Equal(t, "0.0.0.0", cfg.ServerHost)
		assert.Equal(t, 8080, cfg.ServerPort)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, string(cipher.KDFPad), cfg.CipherKDF)
		assert.Equal(t, "* /v1/*", cfg.EncryptedRoutes)
		assert.True(t, cfg.MetricsEnabled)
		assert.Equal(t, "ciphergate", cfg.MetricsNamespace)
		assert.Equal(t, 8081, cfg.MetricsPort)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("CIPHER_SECRET", "mysecret")
		t.Setenv("CIPHER_KDF", "pbkdf2")
		t.Setenv("ENCRYPTED_ROUTES", "POST /v1/echo")
		t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "5")

		cfg := Load()

		assert.Equal(t, 9090, cfg.ServerPort)
		assert.Equal(t, "mysecret", cfg.CipherSecret)
		assert.Equal(t, "pbkdf2", cfg.CipherKDF)
		assert.Equal(t, "POST /v1/echo", cfg.EncryptedRoutes)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerPort:   8080,
			MetricsPort:  8081,
			CipherSecret: "mysecret",
			CipherKDF:    string(cipher.KDFPad),
		}
	}

	t.Run("valid configuration", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := valid()
		cfg.CipherSecret = ""
		assert.ErrorIs(t, cfg.Validate(), cipher.ErrConfiguration)
	})

	t.Run("unknown kdf", func(t *testing.T) {
		cfg := valid()
		cfg.CipherKDF = "rot13"
		assert.ErrorIs(t, cfg.Validate(), cipher.ErrConfiguration)
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := valid()
		cfg.ServerPort = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestGetGinMode(t *testing.T) {
	assert.Equal(t, "debug", (&Config{LogLevel: "debug"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "info"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: ""}).GetGinMode())
}
