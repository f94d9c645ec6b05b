package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidCredential is returned for unknown, disabled or empty tokens.
var ErrInvalidCredential = errors.New("invalid credential")

// Resolver maps an ingestion token to the tenant it belongs to.
type Resolver interface {
	Resolve(ctx context.Context, token string) (tenantID string, err error)
}

// StaticResolver resolves tokens from a fixed token -> tenant table.
type StaticResolver struct {
	// map of hash(token) -> tenant
	tenants map[string]string
}

// NewStaticResolver copies keys (token -> tenant). Entries with an empty
// token or tenant are ignored.
func NewStaticResolver(keys map[string]string) *StaticResolver {
	r := &StaticResolver{tenants: make(map[string]string, len(keys))}
	for token, tenant := range keys {
		token, tenant = strings.TrimSpace(token), strings.TrimSpace(tenant)
		if token == "" || tenant == "" {
			continue
		}
		r.tenants[HashToken(token)] = tenant
	}
	return r
}

func (r *StaticResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidCredential
	}
	tenant, ok := r.tenants[HashToken(token)]
	if !ok {
		return "", ErrInvalidCredential
	}
	return tenant, nil
}

// Len returns the number of configured tokens.
func (r *StaticResolver) Len() int {
	return len(r.tenants)
}
