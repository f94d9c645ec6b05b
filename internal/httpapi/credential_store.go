package httpapi

import (
	"context"
	"errors"
	"fmt"

	"central_logger/internal/auth"
	"central_logger/internal/storage"
)

// DatabaseResolver implements auth.Resolver using the credential repository
type DatabaseResolver struct {
	repo *storage.CredentialRepository
}

// NewDatabaseResolver creates a new database-backed resolver
func NewDatabaseResolver(repo *storage.CredentialRepository) *DatabaseResolver {
	return &DatabaseResolver{
		repo: repo,
	}
}

// Resolve finds the tenant owning a plaintext token
func (s *DatabaseResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", auth.ErrInvalidCredential
	}

	// Look up in database (with caching)
	cred, err := s.repo.GetByHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return "", auth.ErrInvalidCredential
		}
		return "", fmt.Errorf("failed to lookup credential: %w", err)
	}

	if !cred.IsValid() {
		return "", auth.ErrInvalidCredential
	}
	return cred.TenantID, nil
}
