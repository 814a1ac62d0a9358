package auth

import (
	"context"
	"time"

	"github.com/riosinforma/apiserver/internal/cache"
)

const revokedTokenKeyPrefix = "blacklist:access_token:"

// TokenBlacklist records revoked token ids until they would have expired.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisBlacklist stores revoked token ids in Redis. With a nil cache client
// revocation is a no-op and every token is considered live.
type RedisBlacklist struct {
	cache *cache.Client
}

var _ TokenBlacklist = (*RedisBlacklist)(nil)

// NewRedisBlacklist creates a blacklist backed by c.
func NewRedisBlacklist(c *cache.Client) *RedisBlacklist {
	return &RedisBlacklist{cache: c}
}

// Revoke marks tokenID as revoked for ttl.
func (b *RedisBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return b.cache.Set(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked reports whether tokenID was revoked.
func (b *RedisBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	data, err := b.cache.Get(ctx, revokedTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil
	}
	return data != nil, nil
}
