package core

import (
	"strings"
	"time"
)

// NonceRecord is the single outstanding challenge nonce held for an address
type NonceRecord struct {
	Address   string    // Normalized (lower-case) Ethereum address
	Value     string    // Random nonce embedded in the challenge message
	IssuedAt  time.Time // When the nonce was issued
	ExpiresAt time.Time // When the nonce stops being accepted
}

// Expired reports whether the record is no longer valid at the given time
func (r NonceRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Session represents an authenticated wallet session carried by a credential
type Session struct {
	ID        string    // Unique credential identifier (jti)
	Address   string    // Normalized Ethereum address of the holder
	ChainID   int64     // Chain the challenge was signed for
	IssuedAt  time.Time // When the credential was minted
	ExpiresAt time.Time // IssuedAt + session TTL
}

// Identity is what a verified challenge or a valid credential resolves to
type Identity struct {
	Address string
	ChainID int64
}

// RateLimitDecision is the outcome of a single rate limiter acquisition
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// NormalizeAddress canonicalizes an address for store lookups and token subjects
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
