package auth

import (
	"context"
	"time"

	"github.com/yukikurage/task-tracker-api/internal/cache"
)

const revokedTokenKeyPrefix = "revoked_token:"

// RevocationStore remembers logged-out tokens until they would expire anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationStore keeps revoked token IDs in Redis.
type RedisRevocationStore struct {
	cache *cache.Client
}

var _ RevocationStore = (*RedisRevocationStore)(nil)

// NewRedisRevocationStore creates a revocation store. A nil cache disables revocation.
func NewRedisRevocationStore(cache *cache.Client) *RedisRevocationStore {
	return &RedisRevocationStore{cache: cache}
}

// Revoke marks tokenID as revoked for ttl.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked checks whether tokenID was revoked.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, revokedTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil // fail safe
	}
	return data != nil, nil
}

// RemainingTTL is the time left before the claims expire.
func RemainingTTL(claims *Claims, now time.Time) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Sub(now)
}
