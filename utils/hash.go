package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// BytesSHA256 hex digest of data, used to log and deduplicate uploads
func BytesSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
