package helper

import (
	"crypto/sha256"
	"encoding/hex"
)

// Get8BytesHash returns a short stable digest of a value. Used to
// correlate secret tokens in logs without recording the full value.
func Get8BytesHash(value string) string {
	h := sha256.Sum256([]byte(value))

	short := h[:8]

	return hex.EncodeToString(short)
}
