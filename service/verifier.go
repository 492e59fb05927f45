package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/eth"
	"github.com/layer-3/walletauth/ports"
)

// VerifierConfig is what a signed challenge must match
type VerifierConfig struct {
	Domain    string        // Expected message domain, empty to skip the check
	URI       string        // Expected message URI, empty to skip the check
	ChainID   int64         // Expected chain id
	MaxAge    time.Duration // Freshness window for Issued At
	ClockSkew time.Duration // Tolerance for Issued At in the future
}

// SignatureVerifier checks a signed challenge and consumes its nonce
type SignatureVerifier struct {
	cfg    VerifierConfig
	nonces ports.NonceStore
	now    func() time.Time
}

// NewSignatureVerifier creates a verifier backed by the given nonce store.
// A nil clock defaults to time.Now.
func NewSignatureVerifier(cfg VerifierConfig, nonces ports.NonceStore, now func() time.Time) *SignatureVerifier {
	if now == nil {
		now = time.Now
	}
	return &SignatureVerifier{cfg: cfg, nonces: nonces, now: now}
}

// Verify validates message and signature and returns the signer identity.
// Structural checks run before the nonce is consumed, so a rejected message never burns a nonce.
func (v *SignatureVerifier) Verify(ctx context.Context, message, signature string) (*core.Identity, error) {
	challenge, err := core.ParseChallenge(message)
	if err != nil {
		return nil, err
	}

	sig, err := eth.DecodeSignature(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSignatureInvalid, err)
	}

	// The signature covers the literal message bytes, not the parsed fields
	signer, err := eth.RecoverPersonalSigner([]byte(message), sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSignatureInvalid, err)
	}
	if !strings.EqualFold(signer.Hex(), challenge.Address) {
		return nil, fmt.Errorf("%w: signer does not match message address", core.ErrSignatureInvalid)
	}

	if challenge.ChainID != v.cfg.ChainID {
		return nil, fmt.Errorf("%w: got %d, want %d", core.ErrChainMismatch, challenge.ChainID, v.cfg.ChainID)
	}

	if v.cfg.Domain != "" && challenge.Domain != v.cfg.Domain {
		return nil, fmt.Errorf("%w: got %q", core.ErrDomainMismatch, challenge.Domain)
	}
	if v.cfg.URI != "" && challenge.URI != v.cfg.URI {
		return nil, fmt.Errorf("%w: uri %q", core.ErrDomainMismatch, challenge.URI)
	}

	now := v.now()
	if now.Sub(challenge.IssuedAt) > v.cfg.MaxAge {
		return nil, fmt.Errorf("%w: issued at %s", core.ErrMessageExpired, challenge.IssuedAt.Format(time.RFC3339))
	}
	if challenge.IssuedAt.Sub(now) > v.cfg.ClockSkew {
		return nil, fmt.Errorf("%w: issued in the future", core.ErrMessageExpired)
	}

	address := core.NormalizeAddress(challenge.Address)
	ok, err := v.nonces.Consume(ctx, address, challenge.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !ok {
		return nil, core.ErrNonceInvalid
	}

	return &core.Identity{Address: address, ChainID: challenge.ChainID}, nil
}

// verificationOutcome names a Verify result for metrics
func verificationOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, core.ErrMessageMalformed):
		return "malformed"
	case errors.Is(err, core.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, core.ErrChainMismatch):
		return "chain_mismatch"
	case errors.Is(err, core.ErrDomainMismatch):
		return "domain_mismatch"
	case errors.Is(err, core.ErrMessageExpired):
		return "expired"
	case errors.Is(err, core.ErrNonceInvalid):
		return "nonce_invalid"
	default:
		return "error"
	}
}
