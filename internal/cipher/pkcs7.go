package cipher

import (
	"bytes"

	"github.com/allisson/ciphergate/internal/errors"
)

// pkcs7Pad extends data to a multiple of blockSize by appending n bytes of
// value n. When data is already aligned a full padding block is appended, so
// the padding is always present and unambiguous on the way back.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// pkcs7Unpad validates and strips PKCS#7 padding. Returns ErrPadding when the
// input is empty, not block-aligned, or the trailing bytes are inconsistent.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.Wrap(ErrPadding, "data is not block aligned")
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.Wrap(ErrPadding, "padding length out of range")
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.Wrap(ErrPadding, "inconsistent padding bytes")
		}
	}

	return data[:len(data)-n], nil
}
