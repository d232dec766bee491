package audit

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a keyed BLAKE2b-256 digest of an identity document.
// An empty key gives an unkeyed digest. Keys longer than 64 bytes are truncated.
func Fingerprint(document string, key []byte) string {
	if document == "" {
		return ""
	}
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return ""
	}
	_, _ = h.Write([]byte(document))
	return hex.EncodeToString(h.Sum(nil))
}
