package commands

import (
	"fmt"
	"io"

	"github.com/allisson/ciphergate/internal/cipher"
)

// RunEncrypt encrypts everything read from r and writes the base64 ciphertext
// to w. Useful for producing request payloads against intercepted routes.
func RunEncrypt(cctx *cipher.Context, r io.Reader, w io.Writer) error {
	encrypter := cctx.NewEncryptingWriter(w)

	if _, err := io.Copy(encrypter, r); err != nil {
		return fmt.Errorf("failed to encrypt input: %w", err)
	}
	if err := encrypter.Close(); err != nil {
		return fmt.Errorf("failed to flush ciphertext: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// RunDecrypt decrypts the base64 ciphertext read from r and writes the
// plaintext to w.
func RunDecrypt(cctx *cipher.Context, r io.Reader, w io.Writer) error {
	decrypter := cctx.NewDecryptingReader(r)
	defer func() { _ = decrypter.Close() }()

	if _, err := io.Copy(w, decrypter); err != nil {
		return fmt.Errorf("failed to decrypt input: %w", err)
	}

	return nil
}
