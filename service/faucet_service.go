package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/shopspring/decimal"
)

// FaucetConfig describes the token handed out per claim
type FaucetConfig struct {
	Token    string          // Token contract address
	Amount   decimal.Decimal // Amount per claim in whole tokens
	Decimals int32           // Token decimals
}

// FaucetService accepts claims from authenticated identities and queues them for the executor
type FaucetService struct {
	limiter  ports.RateLimiter
	eventPub ports.EventPublisher
	token    string
	amount   decimal.Decimal

	options
}

// NewFaucetService creates a faucet service. The per-claim amount must be a whole number of base units.
func NewFaucetService(limiter ports.RateLimiter, eventPub ports.EventPublisher, cfg FaucetConfig, opts ...Option) (*FaucetService, error) {
	if cfg.Decimals < 0 {
		return nil, errors.New("token decimals must not be negative")
	}
	if !cfg.Amount.IsPositive() {
		return nil, errors.New("claim amount must be positive")
	}

	base := cfg.Amount.Shift(cfg.Decimals)
	if !base.Equal(base.Truncate(0)) {
		return nil, fmt.Errorf("claim amount %s has more precision than %d decimals", cfg.Amount, cfg.Decimals)
	}

	return &FaucetService{
		limiter:  limiter,
		eventPub: eventPub,
		token:    cfg.Token,
		amount:   base,
		options:  newOptions(opts),
	}, nil
}

// Claim queues one faucet payout for identity
func (f *FaucetService) Claim(ctx context.Context, identity *core.Identity) (*core.ClaimRequest, error) {
	if identity == nil || identity.Address == "" {
		return nil, core.ErrUnauthenticated
	}

	if err := f.acquire(ctx, f.limiter, ScopeClaim, identity.Address); err != nil {
		f.metrics.ObserveAuth(ScopeClaim, verificationOutcome(err))
		return nil, err
	}

	claim := &core.ClaimRequest{
		ID:          uuid.New().String(),
		Address:     identity.Address,
		ChainID:     identity.ChainID,
		Token:       f.token,
		Amount:      f.amount.String(),
		RequestedAt: f.now().UTC(),
	}

	if err := f.eventPub.PublishClaim(ctx, claim); err != nil {
		f.metrics.ObserveAuth(ScopeClaim, "error")
		return nil, fmt.Errorf("failed to queue claim: %w", err)
	}

	f.metrics.ObserveAuth(ScopeClaim, "ok")
	f.logger.Info("faucet claim queued", "request_id", claim.ID, "address", claim.Address, "amount", claim.Amount)

	return claim, nil
}
