package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(1.0, 3, testLogger()))
	router.GET("/health", healthHandler)

	doRequest := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		return w
	}

	// The burst allowance serves the first requests.
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest().Code)
	}

	// The bucket is empty now.
	w := doRequest()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimitMiddlewarePerIP(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(1.0, 1, testLogger()))
	router.GET("/health", healthHandler)

	doRequest := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, doRequest("10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, doRequest("10.0.0.1:1234"))

	// A different client keeps its own bucket.
	assert.Equal(t, http.StatusOK, doRequest("10.0.0.2:1234"))
}
