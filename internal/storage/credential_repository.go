package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"central_logger/internal/models"
)

// CredentialRepository handles credential database operations
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create stores a credential. Only the token hash is ever persisted.
func (r *CredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	if cred.TenantID == "" {
		return ErrTenantRequired
	}
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now()
	}
	cred.CreatedAt = cred.CreatedAt.UTC()

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO credentials (id, tenant_id, name, token_hash, enabled, created_at)
		VALUES (:id, :tenant_id, :name, :token_hash, :enabled, :created_at)
	`
	if _, err := r.db.conn.NamedExecContext(ctx, query, cred); err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// GetByHash retrieves an enabled credential by token hash, using the cache
func (r *CredentialRepository) GetByHash(ctx context.Context, tokenHash string) (*models.Credential, error) {
	if cred, ok := r.db.credentialCache.Get(tokenHash); ok {
		return cred, nil
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var cred models.Credential
	query := r.db.conn.Rebind(`
		SELECT id, tenant_id, name, token_hash, enabled, created_at
		FROM credentials
		WHERE token_hash = ?
	`)

	err := r.db.conn.GetContext(ctx, &cred, query, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if !cred.IsValid() {
		return nil, ErrCredentialNotFound
	}

	r.db.credentialCache.Set(tokenHash, &cred)
	return &cred, nil
}

// ListByTenant returns every credential of a tenant, enabled or not
func (r *CredentialRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Credential, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := r.db.conn.Rebind(`
		SELECT id, tenant_id, name, token_hash, enabled, created_at
		FROM credentials
		WHERE tenant_id = ?
		ORDER BY created_at, id
	`)

	creds := []*models.Credential{}
	if err := r.db.conn.SelectContext(ctx, &creds, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// SetEnabled enables or disables a tenant's credential and evicts it from the cache
func (r *CredentialRepository) SetEnabled(ctx context.Context, tenantID string, id uuid.UUID, enabled bool) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var tokenHash string
	selectQuery := r.db.conn.Rebind(`SELECT token_hash FROM credentials WHERE tenant_id = ? AND id = ?`)
	if err := r.db.conn.GetContext(ctx, &tokenHash, selectQuery, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCredentialNotFound
		}
		return fmt.Errorf("failed to get credential: %w", err)
	}

	updateQuery := r.db.conn.Rebind(`UPDATE credentials SET enabled = ? WHERE tenant_id = ? AND id = ?`)
	if _, err := r.db.conn.ExecContext(ctx, updateQuery, enabled, tenantID, id); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	r.db.credentialCache.Delete(tokenHash)
	return nil
}
