package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns the lowercase hex SHA-256 of s. Credential tokens are
// stored and cached in this form only.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
