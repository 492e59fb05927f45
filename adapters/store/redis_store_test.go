package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisNonceStore(t *testing.T, ttl time.Duration) (*RedisNonceStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisNonceStore(client, ttl), mr
}

func TestRedisNonceStore_IssueAndConsume(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisNonceStore(t, 10*time.Minute)

	rec, err := s.Issue(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", rec.Address)

	stored, err := mr.Get("walletauth:nonce:" + rec.Address)
	require.NoError(t, err)
	assert.Equal(t, rec.Value, stored)
	assert.Equal(t, 10*time.Minute, mr.TTL("walletauth:nonce:"+rec.Address))

	ok, err := s.Consume(ctx, "0xABC0000000000000000000000000000000000001", rec.Value)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Consume(ctx, testAddress, rec.Value)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisNonceStore_Supersede(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisNonceStore(t, 10*time.Minute)

	first, err := s.Issue(ctx, testAddress)
	require.NoError(t, err)
	second, err := s.Issue(ctx, testAddress)
	require.NoError(t, err)

	ok, err := s.Consume(ctx, testAddress, first.Value)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Consume(ctx, testAddress, second.Value)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisNonceStore_MismatchKeepsNonce(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisNonceStore(t, 10*time.Minute)

	rec, err := s.Issue(ctx, testAddress)
	require.NoError(t, err)

	ok, err := s.Consume(ctx, testAddress, "ffffffffffffffff")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Consume(ctx, testAddress, "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Consume(ctx, testAddress, rec.Value)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisNonceStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisNonceStore(t, 10*time.Minute)

	rec, err := s.Issue(ctx, testAddress)
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)

	ok, err := s.Consume(ctx, testAddress, rec.Value)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisNonceStore_BackendError(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisNonceStore(t, 10*time.Minute)
	mr.Close()

	_, err := s.Issue(ctx, testAddress)
	assert.Error(t, err)

	_, err = s.Consume(ctx, testAddress, "ffffffffffffffff")
	assert.Error(t, err)
}
