package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// ContentKey derives a content-addressed cache key from raw bytes.
// The same payload always maps to the same key, so repeated uploads
// of one file hit the same entry.
func ContentKey(prefix string, payload []byte) string {
	return GenerateKey(prefix, ContentHash(payload))
}

// ContentHash returns the hex sha256 of payload.
func ContentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// BuildPattern creates a Redis pattern for key matching.
func BuildPattern(prefix string) string {
	return fmt.Sprintf("%s*", prefix)
}
