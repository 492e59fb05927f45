package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// MemoryNonceStore is an in-memory implementation of the NonceStore interface
type MemoryNonceStore struct {
	nonces map[string]core.NonceRecord
	mu     sync.Mutex

	ttl time.Duration
	now func() time.Time
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)

// NewMemoryNonceStore creates a new in-memory nonce store.
// A nil clock defaults to time.Now.
func NewMemoryNonceStore(ttl time.Duration, now func() time.Time) *MemoryNonceStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryNonceStore{
		nonces: make(map[string]core.NonceRecord),
		ttl:    ttl,
		now:    now,
	}
}

// Issue stores a fresh nonce for the address, replacing any outstanding one
func (s *MemoryNonceStore) Issue(ctx context.Context, address string) (*core.NonceRecord, error) {
	value, err := generateNonce()
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := core.NonceRecord{
		Address:   core.NormalizeAddress(address),
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[rec.Address] = rec

	return &rec, nil
}

// Consume removes the nonce if it is live and matches
func (s *MemoryNonceStore) Consume(ctx context.Context, address, nonce string) (bool, error) {
	key := core.NormalizeAddress(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.nonces[key]
	if !exists {
		return false, nil
	}

	// Lazy expiry
	if rec.Expired(s.now()) {
		delete(s.nonces, key)
		return false, nil
	}

	if !nonceEqual(rec.Value, nonce) {
		return false, nil
	}

	delete(s.nonces, key)
	return true, nil
}

// PurgeExpired removes every expired record
func (s *MemoryNonceStore) PurgeExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for key, rec := range s.nonces {
		if rec.Expired(now) {
			delete(s.nonces, key)
			purged++
		}
	}

	return purged, nil
}

// Len returns the number of records currently held, expired or not
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nonces)
}
