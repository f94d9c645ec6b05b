package httpapi

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"central_logger/internal/auth"
	"central_logger/internal/config"
	"central_logger/internal/models"
	"central_logger/internal/storage/storagetest"
)

func TestDatabaseResolver(t *testing.T) {
	ctx := context.Background()
	db := storagetest.NewDB(t)
	repo := db.NewCredentialRepository()

	cred := &models.Credential{TenantID: "acme", Name: "ci", TokenHash: auth.HashToken("db-token"), Enabled: true}
	require.NoError(t, repo.Create(ctx, cred))

	resolver := NewDatabaseResolver(repo)

	tenant, err := resolver.Resolve(ctx, "db-token")
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant)

	_, err = resolver.Resolve(ctx, "unknown-token")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	_, err = resolver.Resolve(ctx, "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	require.NoError(t, repo.SetEnabled(ctx, "acme", cred.ID, false))
	_, err = resolver.Resolve(ctx, "db-token")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
}

func TestNewResolver(t *testing.T) {
	ctx := context.Background()
	db := storagetest.NewDB(t)
	require.NoError(t, db.NewCredentialRepository().Create(ctx, &models.Credential{
		TenantID: "globex", Name: "worker", TokenHash: auth.HashToken("db-token"), Enabled: true,
	}))

	cfg := testConfig()
	static := NewResolver(cfg, db, nil)
	assert.IsType(t, &auth.StaticResolver{}, static)
	tenant, err := static.Resolve(ctx, acmeKey)
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant)

	cfg.Auth.Source = config.CredentialSourceDatabase
	assert.IsType(t, &DatabaseResolver{}, NewResolver(cfg, db, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cached := NewResolver(cfg, db, client)
	assert.IsType(t, &auth.CachedResolver{}, cached)
	tenant, err = cached.Resolve(ctx, "db-token")
	require.NoError(t, err)
	assert.Equal(t, "globex", tenant)
	assert.True(t, mr.Exists("credential:"+auth.HashToken("db-token")))
}
