package cipher

import (
	"github.com/allisson/ciphergate/internal/errors"
)

// Transport cipher error definitions.
//
// All three wrap the shared sentinels from internal/errors so the HTTP layer
// maps them without knowing about this package.
var (
	// ErrDecoding indicates the transmitted payload is not valid base64.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDecoding = errors.Wrap(errors.ErrInvalidInput, "invalid base64 payload")

	// ErrPadding indicates corrupt ciphertext: the length is not a multiple
	// of the cipher block size, or the trailing PKCS#7 padding is invalid.
	// Decryption is deterministic, so the request can never succeed on retry.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrPadding = errors.Wrap(errors.ErrInvalidInput, "invalid ciphertext padding")

	// ErrConfiguration indicates the transport secret is missing or empty.
	// Raised at startup, never during a request cycle.
	ErrConfiguration = errors.New("transport secret is not configured")
)
