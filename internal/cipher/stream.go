package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"encoding/base64"
	"io"

	"github.com/allisson/ciphergate/internal/errors"
)

// chunkSize is how much base64-decoded ciphertext the reader pulls per fill.
const chunkSize = 64 * aes.BlockSize

// DecryptingReader turns a stream of base64-encoded CBC ciphertext into
// plaintext: wire -> base64 decode -> CBC decrypt -> PKCS#7 unpad. The final
// ciphertext block is withheld until EOF so callers never observe plaintext
// from a message whose padding turns out to be invalid.
//
// A reader binds one single-use decrypter and must not be reused across
// requests.
type DecryptingReader struct {
	src  io.Reader // base64 decoder over the raw stream
	raw  io.Closer // original stream, closed on Close (may be nil)
	mode stdcipher.BlockMode

	stage []byte // undecrypted ciphertext, less than one block after fill
	hold  []byte // last decrypted block, withheld until EOF for unpadding
	plain []byte // decrypted bytes ready to be served
	err   error  // sticky terminal state, io.EOF on clean end
}

// NewDecryptingReader wraps src in the full decode-then-decrypt chain. When
// src is also an io.Closer it is closed by Close.
func (c *Context) NewDecryptingReader(src io.Reader) *DecryptingReader {
	raw, _ := src.(io.Closer)
	return &DecryptingReader{
		src:  base64.NewDecoder(base64.StdEncoding, src),
		raw:  raw,
		mode: c.NewDecrypter(),
	}
}

// Read serves decrypted plaintext. An empty ciphertext stream yields an
// immediate EOF with no plaintext and no padding error.
func (r *DecryptingReader) Read(p []byte) (int, error) {
	for len(r.plain) == 0 && r.err == nil {
		r.fill()
	}

	if len(r.plain) > 0 {
		n := copy(p, r.plain)
		r.plain = r.plain[n:]
		return n, nil
	}

	return 0, r.err
}

// fill pulls one chunk of ciphertext, decrypts every complete block except
// the most recent one, and resolves padding when the stream ends.
func (r *DecryptingReader) fill() {
	buf := make([]byte, chunkSize)
	n, err := r.src.Read(buf)

	if n > 0 {
		r.stage = append(r.stage, buf[:n]...)
		if whole := len(r.stage) / aes.BlockSize * aes.BlockSize; whole > 0 {
			decrypted := make([]byte, whole)
			r.mode.CryptBlocks(decrypted, r.stage[:whole])
			r.stage = r.stage[whole:]

			// Release the previously withheld block, withhold the newest one.
			r.plain = append(r.plain, r.hold...)
			r.plain = append(r.plain, decrypted[:whole-aes.BlockSize]...)
			r.hold = decrypted[whole-aes.BlockSize:]
		}
	}

	if err == nil {
		return
	}
	if err == io.EOF {
		r.finish()
		return
	}
	r.err = wrapStreamError(err)
}

// finish validates the stream tail once the decoder reports EOF.
func (r *DecryptingReader) finish() {
	if len(r.stage) != 0 {
		r.err = errors.Wrap(ErrPadding, "ciphertext is not block aligned")
		return
	}

	if len(r.hold) == 0 {
		// Nothing was transmitted: empty plaintext.
		r.err = io.EOF
		return
	}

	unpadded, err := pkcs7Unpad(r.hold, aes.BlockSize)
	if err != nil {
		r.err = err
		return
	}

	r.plain = append(r.plain, unpadded...)
	r.hold = nil
	r.err = io.EOF
}

// Close releases the wrapped stream. Idempotent.
func (r *DecryptingReader) Close() error {
	if r.err == nil {
		r.err = errors.New("read from closed decrypting reader")
	}
	if r.raw == nil {
		return nil
	}
	raw := r.raw
	r.raw = nil
	return raw.Close()
}

// wrapStreamError classifies decoder failures as ErrDecoding and passes
// transport errors through unchanged.
func wrapStreamError(err error) error {
	var corrupt base64.CorruptInputError
	if errors.As(err, &corrupt) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrap(ErrDecoding, err.Error())
	}
	return err
}

// EncryptingWriter turns plaintext writes into base64-encoded CBC ciphertext
// on the wire: handler -> CBC encrypt -> base64 encode -> sink. This is the
// mirror composition of DecryptingReader. Close is mandatory: it writes the
// padded final block and flushes the encoder, and until it runs the tail of
// the message is still buffered.
type EncryptingWriter struct {
	b64    io.WriteCloser // base64 encoder over the raw sink
	mode   stdcipher.BlockMode
	part   []byte // plaintext remainder, always less than one block
	buf    []byte // reusable ciphertext scratch
	wrote  bool
	closed bool
}

// NewEncryptingWriter wraps dst in the full encrypt-then-encode chain. The
// destination itself is never closed; only the transform state is.
func (c *Context) NewEncryptingWriter(dst io.Writer) *EncryptingWriter {
	return &EncryptingWriter{
		b64:  base64.NewEncoder(base64.StdEncoding, dst),
		mode: c.NewEncrypter(),
	}
}

// Write encrypts all complete blocks and keeps the remainder for the next
// write or for Close.
func (w *EncryptingWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write to closed encrypting writer")
	}
	if len(p) == 0 {
		return 0, nil
	}

	w.wrote = true
	w.part = append(w.part, p...)

	whole := len(w.part) / aes.BlockSize * aes.BlockSize
	if whole == 0 {
		return len(p), nil
	}

	if cap(w.buf) < whole {
		w.buf = make([]byte, whole)
	}
	out := w.buf[:whole]
	w.mode.CryptBlocks(out, w.part[:whole])
	w.part = w.part[whole:]

	if _, err := w.b64.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close pads and encrypts the final block and flushes the base64 encoder.
// When nothing was written, nothing is emitted. Idempotent.
func (w *EncryptingWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if !w.wrote {
		return w.b64.Close()
	}

	final := pkcs7Pad(w.part, aes.BlockSize)
	w.mode.CryptBlocks(final, final)
	w.part = nil

	if _, err := w.b64.Write(final); err != nil {
		return err
	}
	return w.b64.Close()
}
