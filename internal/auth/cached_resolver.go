package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"central_logger/internal/utils"
)

// DefaultCacheTTL bounds how long a revoked token keeps resolving from cache.
const DefaultCacheTTL = 10 * time.Minute

const cacheKeyPrefix = "credential:"

// EvictCachedCredential removes the cache entry for a stored token hash, so a
// disabled credential stops resolving before its TTL runs out.
func EvictCachedCredential(ctx context.Context, client *redis.Client, tokenHash string) error {
	return client.Del(ctx, cacheKeyPrefix+tokenHash).Err()
}

// CachedResolver fronts another resolver with a shared Redis cache keyed by
// token hash. Only successful resolutions are cached, and a Redis outage
// falls through to the wrapped resolver.
type CachedResolver struct {
	client *redis.Client
	next   Resolver
	ttl    time.Duration
	logger *utils.Logger
}

// NewCachedResolver wraps next. A non-positive ttl selects DefaultCacheTTL.
func NewCachedResolver(client *redis.Client, next Resolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedResolver{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: utils.NewLogger("auth"),
	}
}

func (r *CachedResolver) key(token string) string {
	return cacheKeyPrefix + HashToken(token)
}

func (r *CachedResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidCredential
	}
	key := r.key(token)

	tenant, err := r.client.Get(ctx, key).Result()
	switch {
	case err == nil && tenant != "":
		return tenant, nil
	case err != nil && !errors.Is(err, redis.Nil):
		r.logger.Warn("credential cache unavailable", "error", err)
	}

	tenant, err = r.next.Resolve(ctx, token)
	if err != nil {
		return "", err
	}

	if err := r.client.Set(ctx, key, tenant, r.ttl).Err(); err != nil {
		r.logger.Warn("failed to cache credential", "error", err)
	}
	return tenant, nil
}
