package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// SessionIssuer mints and validates stateless session credentials
type SessionIssuer struct {
	tokenizer ports.Tokenizer
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionIssuer creates an issuer whose credentials live for ttl.
// A nil clock defaults to time.Now.
func NewSessionIssuer(tokenizer ports.Tokenizer, ttl time.Duration, now func() time.Time) *SessionIssuer {
	if now == nil {
		now = time.Now
	}
	return &SessionIssuer{tokenizer: tokenizer, ttl: ttl, now: now}
}

// Issue mints a credential for a verified address
func (s *SessionIssuer) Issue(address string, chainID int64) (string, *core.Session, error) {
	// Credentials carry whole seconds, keep the session in step with what is encoded
	now := s.now().UTC().Truncate(time.Second)
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   core.NormalizeAddress(address),
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return token, session, nil
}

// Validate checks a credential and returns the identity it carries.
// Errors are core.ErrCredentialExpired or wrap core.ErrCredentialMalformed.
func (s *SessionIssuer) Validate(token string) (*core.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", core.ErrCredentialMalformed)
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		if errors.Is(err, core.ErrCredentialExpired) || errors.Is(err, core.ErrCredentialMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrCredentialMalformed, err)
	}

	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrCredentialExpired
	}

	return &core.Identity{Address: session.Address, ChainID: session.ChainID}, nil
}
