package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/redis/go-redis/v9"
)

// consumeScript deletes the nonce key only when it holds the presented value
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisNonceStore is a Redis implementation of the NonceStore interface.
// Expiry is delegated to Redis key TTLs.
type RedisNonceStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.NonceStore = (*RedisNonceStore)(nil)

// NewRedisNonceStore creates a new Redis nonce store
func NewRedisNonceStore(client redis.UniversalClient, ttl time.Duration) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "walletauth:nonce:",
		ttl:    ttl,
	}
}

// Issue stores a fresh nonce for the address, overwriting any outstanding one
func (s *RedisNonceStore) Issue(ctx context.Context, address string) (*core.NonceRecord, error) {
	value, err := generateNonce()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &core.NonceRecord{
		Address:   core.NormalizeAddress(address),
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.client.Set(ctx, s.prefix+rec.Address, value, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}

	return rec, nil
}

// Consume atomically compares and deletes the nonce
func (s *RedisNonceStore) Consume(ctx context.Context, address, nonce string) (bool, error) {
	if nonce == "" {
		return false, nil
	}

	key := s.prefix + core.NormalizeAddress(address)
	deleted, err := consumeScript.Run(ctx, s.client, []string{key}, nonce).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	return deleted == 1, nil
}

// PurgeExpired is a no-op, Redis expires keys itself
func (s *RedisNonceStore) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}
