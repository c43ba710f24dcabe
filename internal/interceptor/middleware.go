// Package interceptor wires transport encryption around a single
// request/response cycle: the inbound body is wrapped in a decrypting
// read-stream, the outbound body in an encrypting write-stream, and an
// encrypted query string is decrypted in place before the handler runs.
// Handlers never know encryption is happening.
package interceptor

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ciphergate/internal/cipher"
	"github.com/allisson/ciphergate/internal/httputil"
)

// Metrics records interception outcomes. Implemented by
// metrics.CipherMetrics; a nil value disables recording.
type Metrics interface {
	RecordCycle(ctx context.Context, route, status string)
	RecordCycleDuration(ctx context.Context, route string, duration time.Duration, status string)
}

// Middleware returns the per-request interception hook.
//
// Per cycle it runs a fixed sequence: decrypt the query string (eagerly, so a
// malformed query fails before the handler is invoked), wrap the request body
// in a decrypting reader, swap the response writer for an encrypting one,
// invoke the rest of the chain, then unconditionally release both streams and
// restore the original writer. The release step is deferred, so it also runs
// when the handler fails or panics; ciphertext is flushed to the real sink
// exactly once.
//
// The middleware holds no per-request state of its own and the cipher context
// is read-only, so one instance serves any number of concurrent cycles.
// Routes the policy does not cover pass through untouched; a nil policy
// intercepts every route.
func Middleware(cctx *cipher.Context, policy *Policy, m Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := routePath(c)
		if policy != nil && !policy.Requires(c.Request.Method, route) {
			c.Next()
			return
		}

		start := time.Now()

		if raw := c.Request.URL.RawQuery; raw != "" {
			plain, err := decryptQuery(cctx, raw)
			if err != nil {
				recordCycle(c, m, route, start, "query_error")
				httputil.HandleErrorGin(c, err, logger)
				c.Abort()
				return
			}
			c.Request.URL.RawQuery = plain
		}

		body := cctx.NewDecryptingReader(c.Request.Body)
		c.Request.Body = body

		original := c.Writer
		writer := newEncryptingResponseWriter(original, cctx)
		c.Writer = writer

		defer func() {
			// Unconditional cleanup: flush the encrypting stream, put the
			// real writer back, release the body. Runs on panic too, before
			// the recovery middleware takes over.
			status := "success"
			if len(c.Errors) > 0 || writer.Status() >= 500 {
				status = "handler_error"
			}
			if err := writer.release(); err != nil {
				logger.Error("failed to flush encrypted response",
					slog.String("route", route),
					slog.Any("error", err),
				)
				status = "flush_error"
			}
			c.Writer = original
			if err := body.Close(); err != nil {
				logger.Error("failed to release request body",
					slog.String("route", route),
					slog.Any("error", err),
				)
			}
			recordCycle(c, m, route, start, status)
		}()

		c.Next()
	}
}

// decryptQuery decodes and decrypts the query string as one in-memory blob.
// The leading delimiter and URL escaping are stripped first; the plaintext
// replaces the whole query, so handlers read ordinary parameters.
func decryptQuery(cctx *cipher.Context, raw string) (string, error) {
	raw = strings.TrimPrefix(raw, "?")

	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		return "", cipher.ErrDecoding
	}

	// Clients that forget to escape '+' get it back as a space during
	// unescaping. Base64 never contains spaces, so restoring them is safe.
	unescaped = strings.ReplaceAll(unescaped, " ", "+")

	plain, err := cctx.DecryptString(unescaped)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// routePath prefers the matched route pattern to keep metrics cardinality
// bounded, falling back to the URL path for unmatched requests.
func routePath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}

func recordCycle(c *gin.Context, m Metrics, route string, start time.Time, status string) {
	if m == nil {
		return
	}
	ctx := c.Request.Context()
	m.RecordCycle(ctx, route, status)
	m.RecordCycleDuration(ctx, route, time.Since(start), status)
}
