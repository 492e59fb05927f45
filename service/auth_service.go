package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/eth"
	"github.com/layer-3/walletauth/ports"
)

// Rate limiter scopes
const (
	ScopeChallenge = "challenge"
	ScopeVerify    = "verify"
	ScopeClaim     = "claim"
)

// ChallengeConfig describes the relying party named in every challenge
type ChallengeConfig struct {
	Domain    string
	URI       string
	Statement string
	ChainID   int64
}

// Limiters holds one rate limiter per scope. A nil limiter disables the scope.
type Limiters struct {
	Challenge ports.RateLimiter
	Verify    ports.RateLimiter
	Claim     ports.RateLimiter
}

// AuthService handles authentication business logic
type AuthService struct {
	nonces   ports.NonceStore
	verifier *SignatureVerifier
	sessions *SessionIssuer
	limiters Limiters
	eventPub ports.EventPublisher
	cfg      ChallengeConfig

	options
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	verifier *SignatureVerifier,
	sessions *SessionIssuer,
	limiters Limiters,
	eventPub ports.EventPublisher,
	cfg ChallengeConfig,
	opts ...Option,
) *AuthService {
	return &AuthService{
		nonces:   nonces,
		verifier: verifier,
		sessions: sessions,
		limiters: limiters,
		eventPub: eventPub,
		cfg:      cfg,
		options:  newOptions(opts),
	}
}

// CreateChallenge issues a fresh nonce for address and renders the message to sign.
// Any earlier unconsumed nonce for the same address stops being valid.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	address = strings.TrimSpace(address)
	if !eth.IsAddress(address) {
		s.metrics.ObserveAuth(ScopeChallenge, "invalid")
		return nil, fmt.Errorf("%w: address must be a 0x-prefixed 20-byte hex string", core.ErrValidation)
	}

	key := core.NormalizeAddress(address)
	if err := s.acquire(ctx, s.limiters.Challenge, ScopeChallenge, key); err != nil {
		s.metrics.ObserveAuth(ScopeChallenge, verificationOutcome(err))
		return nil, err
	}

	record, err := s.nonces.Issue(ctx, key)
	if err != nil {
		s.metrics.ObserveAuth(ScopeChallenge, "error")
		return nil, fmt.Errorf("failed to issue nonce: %w", err)
	}

	challenge := &core.Challenge{
		Domain:    s.cfg.Domain,
		Address:   address,
		Statement: s.cfg.Statement,
		URI:       s.cfg.URI,
		Version:   core.MessageVersion,
		ChainID:   s.cfg.ChainID,
		Nonce:     record.Value,
		IssuedAt:  record.IssuedAt,
	}

	s.metrics.ObserveAuth(ScopeChallenge, "ok")
	s.logger.Debug("challenge issued", "address", key, "expires_at", record.ExpiresAt)

	return challenge, nil
}

// Login verifies a signed challenge and mints a session credential.
// clientKey identifies the caller for the verify rate limiter.
func (s *AuthService) Login(ctx context.Context, clientKey, message, signature string) (string, *core.Session, error) {
	if message == "" || signature == "" {
		s.metrics.ObserveAuth(ScopeVerify, "invalid")
		return "", nil, fmt.Errorf("%w: message and signature are required", core.ErrValidation)
	}

	if err := s.acquire(ctx, s.limiters.Verify, ScopeVerify, clientKey); err != nil {
		s.metrics.ObserveAuth(ScopeVerify, verificationOutcome(err))
		return "", nil, err
	}

	identity, err := s.verifier.Verify(ctx, message, signature)
	s.metrics.ObserveAuth(ScopeVerify, verificationOutcome(err))
	if err != nil {
		s.logger.Info("verification failed", "client", clientKey, "error", err)
		return "", nil, err
	}

	token, session, err := s.sessions.Issue(identity.Address, identity.ChainID)
	if err != nil {
		return "", nil, err
	}

	// The credential is already minted, a lost event must not fail the login
	if err := s.eventPub.PublishLogin(ctx, session); err != nil {
		s.logger.Warn("failed to publish login event", "address", session.Address, "error", err)
	}

	s.logger.Info("session issued", "address", session.Address, "chain_id", session.ChainID, "expires_at", session.ExpiresAt)

	return token, session, nil
}

// Authenticate resolves a bearer credential into an identity
func (s *AuthService) Authenticate(token string) (*core.Identity, error) {
	identity, err := s.sessions.Validate(token)
	if err != nil {
		s.metrics.ObserveAuth("session", "rejected")
		return nil, err
	}
	return identity, nil
}

// PurgeExpired drops expired nonces from the backing store
func (s *AuthService) PurgeExpired(ctx context.Context) (int, error) {
	return s.nonces.PurgeExpired(ctx)
}
