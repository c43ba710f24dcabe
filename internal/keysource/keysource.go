// Package keysource resolves the transport secret from configuration. The
// configured value is either used verbatim or, when a KMS key URI is set,
// treated as base64 ciphertext and decrypted through a gocloud.dev secrets
// keeper at startup. Key rotation is out of scope; this is only a
// configuration source for the cipher context.
package keysource

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	"github.com/allisson/ciphergate/internal/cipher"
	"github.com/allisson/ciphergate/internal/errors"

	// Register KMS provider drivers for secrets.OpenKeeper.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// Resolve returns the plaintext transport secret.
//
// With an empty kmsKeyURI the configured value is the secret itself. With a
// keeper URI (awskms://, gcpkms://, azurekeyvault://, hashivault://,
// base64key://) the configured value must be the base64-encoded ciphertext of
// the secret under that keeper.
func Resolve(ctx context.Context, configured, kmsKeyURI string) (string, error) {
	if configured == "" {
		return "", cipher.ErrConfiguration
	}
	if kmsKeyURI == "" {
		return configured, nil
	}

	keeper, err := secrets.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	ciphertext, err := base64.StdEncoding.DecodeString(configured)
	if err != nil {
		return "", errors.Wrap(cipher.ErrConfiguration, "transport secret is not valid base64 ciphertext")
	}

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt transport secret: %w", err)
	}
	if len(plaintext) == 0 {
		return "", cipher.ErrConfiguration
	}

	return string(plaintext), nil
}
