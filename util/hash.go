package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateBuildID creates a deterministic hash for a build based on its entry document
// and start time.
func GenerateBuildID(entry string, startedAt time.Time) string {
	input := fmt.Sprintf("%s:%d", entry, startedAt.UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
