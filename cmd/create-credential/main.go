package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"central_logger/internal/auth"
	"central_logger/internal/config"
	"central_logger/internal/models"
	"central_logger/internal/storage"
)

// newToken returns 32 random bytes, URL-safe encoded
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "cl_" + base64.RawURLEncoding.EncodeToString(b), nil
}

type options struct {
	tenantID string
	name     string
	list     bool
	disable  string
}

// admin runs one credential operation against the credentials table. redis
// may be nil when no shared cache is deployed.
type admin struct {
	creds *storage.CredentialRepository
	redis *redis.Client
	out   io.Writer
}

func (a *admin) run(ctx context.Context, opts options) error {
	switch {
	case opts.list:
		return a.listCredentials(ctx, opts.tenantID)
	case opts.disable != "":
		return a.disableCredential(ctx, opts.tenantID, opts.disable)
	}
	return a.createCredential(ctx, opts.tenantID, opts.name)
}

func (a *admin) createCredential(ctx context.Context, tenantID, name string) error {
	token, err := newToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	cred := &models.Credential{
		TenantID:  tenantID,
		Name:      name,
		TokenHash: auth.HashToken(token),
		Enabled:   true,
	}
	if err := a.creds.Create(ctx, cred); err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	fmt.Fprintf(a.out, "Tenant: %s\n", cred.TenantID)
	fmt.Fprintf(a.out, "ID: %s\n", cred.ID)
	fmt.Fprintf(a.out, "Created: %s\n", cred.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(a.out, "Token: %s\n", token)
	fmt.Fprintln(a.out, "\nThe token is shown only once. Only its hash is stored.")
	return nil
}

func (a *admin) listCredentials(ctx context.Context, tenantID string) error {
	creds, err := a.creds.ListByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		fmt.Fprintf(a.out, "No credentials for tenant %s\n", tenantID)
		return nil
	}
	for _, c := range creds {
		state := "enabled"
		if !c.IsValid() {
			state = "disabled"
		}
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", c.ID, state, c.CreatedAt.Format(time.RFC3339), c.Name)
	}
	return nil
}

func (a *admin) disableCredential(ctx context.Context, tenantID, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid credential id %q: %w", rawID, err)
	}

	creds, err := a.creds.ListByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	var target *models.Credential
	for _, c := range creds {
		if c.ID == id {
			target = c
			break
		}
	}
	if target == nil {
		return fmt.Errorf("credential %s: %w", id, storage.ErrCredentialNotFound)
	}

	if err := a.creds.SetEnabled(ctx, tenantID, id, false); err != nil {
		return fmt.Errorf("failed to disable credential: %w", err)
	}
	if a.redis != nil {
		if err := auth.EvictCachedCredential(ctx, a.redis, target.TokenHash); err != nil {
			return fmt.Errorf("credential disabled but cache eviction failed, it resolves until the cache TTL expires: %w", err)
		}
	}

	fmt.Fprintf(a.out, "Disabled credential %s of tenant %s\n", id, tenantID)
	return nil
}

func main() {
	var opts options
	pflag.StringVar(&opts.tenantID, "tenant", "", "tenant the credential authenticates (required)")
	pflag.StringVar(&opts.name, "name", "", "label for a new credential")
	pflag.BoolVar(&opts.list, "list", false, "list the tenant's credentials instead of creating one")
	pflag.StringVar(&opts.disable, "disable", "", "disable the tenant's credential with this id")
	migrate := pflag.Bool("migrate", false, "create or update the database schema first")
	pflag.Parse()

	if opts.tenantID == "" {
		fmt.Fprintln(os.Stderr, "ERROR: --tenant is required")
		pflag.Usage()
		os.Exit(2)
	}
	if opts.list && opts.disable != "" {
		fmt.Fprintln(os.Stderr, "ERROR: --list and --disable are mutually exclusive")
		os.Exit(2)
	}

	cfg, err := config.LoadStorage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.Source != config.CredentialSourceDatabase {
		fmt.Fprintf(os.Stderr, "WARNING: CREDENTIAL_SOURCE is %q; the collector will not read stored credentials\n", cfg.Auth.Source)
	}

	dbConfig := storage.DefaultDBConfig()
	dbConfig.Driver = cfg.Database.Driver
	dbConfig.DSN = cfg.Database.URL
	dbConfig.MaxOpenConns = 1
	dbConfig.CredentialCacheSize = 1

	db, err := storage.NewDB(dbConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *migrate {
		if err := db.Migrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to migrate database: %v\n", err)
			os.Exit(1)
		}
	}

	a := &admin{creds: db.NewCredentialRepository(), out: os.Stdout}
	if opts.disable != "" && cfg.Redis.Address != "" {
		a.redis, err = storage.NewRedisClient(storage.RedisConfig{
			Address:     cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to Redis: %v\n", err)
			os.Exit(1)
		}
		defer a.redis.Close()
	}

	if err := a.run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
