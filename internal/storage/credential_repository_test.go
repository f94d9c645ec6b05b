package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"central_logger/internal/models"
	"central_logger/internal/storage"
	"central_logger/internal/storage/storagetest"
	"central_logger/internal/utils"
)

func TestCredentialRepository(t *testing.T) {
	db := storagetest.NewDB(t)
	repo := db.NewCredentialRepository()
	ctx := context.Background()

	cred := &models.Credential{
		TenantID:  "acme",
		Name:      "workflow-prod",
		TokenHash: utils.HashString("tok-acme"),
		Enabled:   true,
	}
	require.NoError(t, repo.Create(ctx, cred))

	got, err := repo.GetByHash(ctx, utils.HashString("tok-acme"))
	require.NoError(t, err)
	assert.Equal(t, "acme", got.TenantID)
	assert.Equal(t, 1, db.GetCredentialCache().Len())

	_, err = repo.GetByHash(ctx, utils.HashString("unknown"))
	assert.ErrorIs(t, err, storage.ErrCredentialNotFound)

	// another tenant cannot touch acme's credential
	assert.ErrorIs(t, repo.SetEnabled(ctx, "globex", cred.ID, false), storage.ErrCredentialNotFound)

	require.NoError(t, repo.SetEnabled(ctx, "acme", cred.ID, false))
	assert.Equal(t, 0, db.GetCredentialCache().Len())
	_, err = repo.GetByHash(ctx, utils.HashString("tok-acme"))
	assert.ErrorIs(t, err, storage.ErrCredentialNotFound)

	creds, err := repo.ListByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.False(t, creds[0].Enabled)

	assert.ErrorIs(t, repo.Create(ctx, &models.Credential{TokenHash: "x"}), storage.ErrTenantRequired)
}

func TestCredentialRepository_DuplicateHash(t *testing.T) {
	repo := storagetest.NewDB(t).NewCredentialRepository()
	ctx := context.Background()

	hash := utils.HashString("shared")
	require.NoError(t, repo.Create(ctx, &models.Credential{TenantID: "a", TokenHash: hash, Enabled: true}))
	assert.Error(t, repo.Create(ctx, &models.Credential{TenantID: "b", TokenHash: hash, Enabled: true}))
}
