package interceptor

import (
	"github.com/gin-gonic/gin"

	"github.com/allisson/ciphergate/internal/cipher"
)

// encryptingResponseWriter routes handler output through the encrypting
// stream chain while delegating headers, status, and everything else to the
// real gin.ResponseWriter. Size and Written still report on the underlying
// writer, so they reflect the ciphertext actually sent.
type encryptingResponseWriter struct {
	gin.ResponseWriter
	enc *cipher.EncryptingWriter
}

func newEncryptingResponseWriter(w gin.ResponseWriter, cctx *cipher.Context) *encryptingResponseWriter {
	return &encryptingResponseWriter{
		ResponseWriter: w,
		enc:            cctx.NewEncryptingWriter(w),
	}
}

func (w *encryptingResponseWriter) Write(b []byte) (int, error) {
	return w.enc.Write(b)
}

func (w *encryptingResponseWriter) WriteString(s string) (int, error) {
	return w.enc.Write([]byte(s))
}

// release flushes the final padded block to the wire. Must run exactly once
// per cycle, whether the handler succeeded, failed, or panicked.
func (w *encryptingResponseWriter) release() error {
	return w.enc.Close()
}
