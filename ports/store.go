package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// NonceStore holds at most one outstanding challenge nonce per address
type NonceStore interface {
	// Issue generates a fresh nonce for address, superseding any previous one
	Issue(ctx context.Context, address string) (*core.NonceRecord, error)
	// Consume atomically checks and removes the nonce; false covers absent, mismatched and expired
	Consume(ctx context.Context, address, nonce string) (bool, error)
	// PurgeExpired drops expired records and returns how many were removed
	PurgeExpired(ctx context.Context) (int, error)
}
