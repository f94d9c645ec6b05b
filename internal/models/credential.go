package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential maps a hashed ingestion token to the tenant it authenticates.
type Credential struct {
	ID        uuid.UUID `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	TokenHash string    `db:"token_hash"` // SHA-256 hash
	Enabled   bool      `db:"enabled"`
	CreatedAt time.Time `db:"created_at"`
}

// IsValid checks if the credential may be used
func (c *Credential) IsValid() bool {
	return c.Enabled && c.TenantID != ""
}
