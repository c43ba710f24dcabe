// Package cipher implements the transport cipher used by the gateway:
// AES-256-CBC with PKCS#7 padding, carried over base64. Key and IV are
// derived deterministically from a single configured secret, so any two
// parties holding the secret agree on the transform without per-message
// key exchange.
//
// Known limitation: the IV is fixed per secret, which means identical
// plaintexts always produce identical ciphertexts and CBC's IV-unpredictability
// guarantee is lost. This is part of the wire contract shared with existing
// clients and is kept on purpose rather than silently fixed; do not reuse
// this package where randomized or authenticated encryption is required.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/allisson/ciphergate/internal/errors"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32
	// IVSize is the CBC initialization vector size, equal to the AES block size.
	IVSize = aes.BlockSize

	// padByte right-pads short secrets up to KeySize before truncation.
	padByte = '0'

	// PBKDF2 parameters for the optional hardened derivation mode. The salt
	// is fixed so both ends derive the same key/IV from the shared secret.
	pbkdf2Salt       = "ciphergate.v1"
	pbkdf2Iterations = 100000
)

// KDF selects how key and IV are derived from the configured secret.
type KDF string

const (
	// KDFPad is the wire-compatible default: right-pad the secret with '0'
	// to 32 bytes, key = padded[:32], IV = padded[:16].
	KDFPad KDF = "pad"
	// KDFPBKDF2 derives 48 bytes via PBKDF2-SHA256 and splits them into key
	// and IV. Stronger for short secrets, but changes the wire format; both
	// ends must opt in.
	KDFPBKDF2 KDF = "pbkdf2"
)

// Context holds the derived key/IV pair and the prepared AES block. It is
// immutable after construction and safe to share across concurrent request
// cycles; every transform produced from it is single-use.
type Context struct {
	key   []byte
	iv    []byte
	block stdcipher.Block
}

// New creates a Context using the default wire-compatible derivation.
func New(secret string) (*Context, error) {
	return NewWithKDF(secret, KDFPad)
}

// NewWithKDF creates a Context with an explicit derivation mode.
// Returns ErrConfiguration for an empty secret and for an unknown KDF.
func NewWithKDF(secret string, kdf KDF) (*Context, error) {
	if secret == "" {
		return nil, ErrConfiguration
	}

	var key, iv []byte
	switch kdf {
	case KDFPad, "":
		key, iv = derivePad(secret)
	case KDFPBKDF2:
		key, iv = derivePBKDF2(secret)
	default:
		return nil, errors.Wrap(ErrConfiguration, fmt.Sprintf("unknown kdf %q", kdf))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &Context{key: key, iv: iv, block: block}, nil
}

// derivePad right-pads the secret with '0' until it reaches KeySize, then
// takes the first 32 bytes as the key and the first 16 bytes of the same
// padded value as the IV. Secrets longer than KeySize are truncated, so any
// trailing '0' padding that lands inside the 32-byte prefix is equivalent to
// a shorter secret.
func derivePad(secret string) (key, iv []byte) {
	padded := []byte(secret)
	for len(padded) < KeySize {
		padded = append(padded, padByte)
	}

	key = make([]byte, KeySize)
	copy(key, padded[:KeySize])
	iv = make([]byte, IVSize)
	copy(iv, padded[:IVSize])
	return key, iv
}

// derivePBKDF2 stretches the secret into 48 bytes and splits them into key
// and IV. The salt is a package constant: derivation must stay deterministic
// so both ends of the wire agree.
func derivePBKDF2(secret string) (key, iv []byte) {
	material := pbkdf2.Key([]byte(secret), []byte(pbkdf2Salt), pbkdf2Iterations, KeySize+IVSize, sha256.New)
	return material[:KeySize], material[KeySize : KeySize+IVSize]
}

// NewEncrypter returns a fresh one-shot CBC encrypter bound to the context's
// key/IV. A BlockMode chains state across blocks and must never be shared
// between streams.
func (c *Context) NewEncrypter() stdcipher.BlockMode {
	return stdcipher.NewCBCEncrypter(c.block, c.iv)
}

// NewDecrypter returns a fresh one-shot CBC decrypter, the symmetric
// counterpart of NewEncrypter.
func (c *Context) NewDecrypter() stdcipher.BlockMode {
	return stdcipher.NewCBCDecrypter(c.block, c.iv)
}

// Encrypt pads and encrypts a whole buffer. Used for small payloads such as
// the query string; bodies go through the streaming transforms instead.
func (c *Context) Encrypt(plaintext []byte) []byte {
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	c.NewEncrypter().CryptBlocks(out, padded)
	return out
}

// Decrypt decrypts and unpads a whole buffer. An empty input decrypts to an
// empty output; anything else must be block-aligned valid ciphertext.
func (c *Context) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.Wrap(ErrPadding, "ciphertext is not block aligned")
	}

	out := make([]byte, len(ciphertext))
	c.NewDecrypter().CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, aes.BlockSize)
}

// EncryptToString encrypts a buffer and base64-encodes the result, producing
// the exact representation that travels on the wire.
func (c *Context) EncryptToString(plaintext []byte) string {
	return base64.StdEncoding.EncodeToString(c.Encrypt(plaintext))
}

// DecryptString reverses EncryptToString. Whitespace in the encoded input is
// ignored. Returns ErrDecoding for malformed base64 and ErrPadding for
// corrupt ciphertext.
func (c *Context) DecryptString(encoded string) ([]byte, error) {
	encoded = stripWhitespace(encoded)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(ErrDecoding, err.Error())
	}
	return c.Decrypt(raw)
}

// Fingerprint returns a short hex digest of the derived key for logging and
// the key-info command. The key itself is never exposed.
func (c *Context) Fingerprint() string {
	sum := sha256.Sum256(c.key)
	return fmt.Sprintf("%x", sum[:8])
}

// Close clears the derived key material. The context must not be used after
// Close; call it only on shutdown.
func (c *Context) Close() {
	Zero(c.key)
	Zero(c.iv)
}

// stripWhitespace removes ASCII whitespace so payloads wrapped by proxies or
// mail-style encoders still decode.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
