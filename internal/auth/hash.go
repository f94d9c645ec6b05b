package auth

import (
	"central_logger/internal/utils"
)

// HashToken is the form in which tokens are stored and cached. Plaintext
// tokens are never persisted.
func HashToken(token string) string {
	return utils.HashString(token)
}
