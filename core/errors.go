package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation          = errors.New("invalid request")
	ErrMessageMalformed    = errors.New("malformed challenge message")
	ErrSignatureInvalid    = errors.New("invalid signature")
	ErrChainMismatch       = errors.New("chain id mismatch")
	ErrDomainMismatch      = errors.New("domain mismatch")
	ErrMessageExpired      = errors.New("challenge message expired")
	ErrNonceInvalid        = errors.New("invalid nonce")
	ErrCredentialExpired   = errors.New("credential has expired")
	ErrCredentialMalformed = errors.New("malformed credential")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrRateLimited         = errors.New("too many requests")
)

// RateLimitedError is returned when a rate limiter denies an attempt.
// It unwraps to ErrRateLimited.
type RateLimitedError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: %s, retry after %s", e.Scope, ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// NewRateLimitedError builds a RateLimitedError from a denied decision
func NewRateLimitedError(scope string, decision RateLimitDecision, now time.Time) *RateLimitedError {
	retry := decision.ResetAt.Sub(now)
	if retry < 0 {
		retry = 0
	}
	return &RateLimitedError{Scope: scope, RetryAfter: retry}
}
