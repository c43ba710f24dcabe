package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/allisson/ciphergate/internal/cipher"
)

// keyInfoOutput is the serializable key report. Key material itself never
// appears here; the fingerprint is enough to compare deployments.
type keyInfoOutput struct {
	Fingerprint string `json:"fingerprint"`
	KDF         string `json:"kdf"`
	KeyBits     int    `json:"key_bits"`
}

// RunKeyInfo reports the derived key fingerprint and derivation mode, so two
// sides of a deployment can confirm they share the same transport secret
// without ever printing it.
func RunKeyInfo(cctx *cipher.Context, kdf string, w io.Writer, format string) error {
	info := keyInfoOutput{
		Fingerprint: cctx.Fingerprint(),
		KDF:         kdf,
		KeyBits:     cipher.KeySize * 8,
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "text":
		fmt.Fprintf(w, "Key fingerprint: %s\n", info.Fingerprint)
		fmt.Fprintf(w, "Derivation:      %s\n", info.KDF)
		fmt.Fprintf(w, "Key size:        %d bits\n", info.KeyBits)
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}
