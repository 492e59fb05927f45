package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const AudienceSession = "session:access"

// MinSecretLength is the shortest HS256 secret accepted
const MinSecretLength = 32

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	secret []byte
	now    func() time.Time
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// NewJWTTokenizer creates a new JWT tokenizer.
// A nil clock defaults to time.Now.
func NewJWTTokenizer(secret []byte, now func() time.Time) (*JWTTokenizer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	if now == nil {
		now = time.Now
	}
	return &JWTTokenizer{secret: secret, now: now}, nil
}

// SessionToToken signs a session into a credential
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		Address: session.Address,
		ChainID: session.ChainID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToSession verifies a credential and returns the session it carries.
// Expired credentials yield core.ErrCredentialExpired, everything else core.ErrCredentialMalformed.
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithAudience(AudienceSession),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrCredentialExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrCredentialMalformed, err)
	}

	// Validate token
	if !token.Valid {
		return nil, core.ErrCredentialMalformed
	}

	// Extract claims
	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", core.ErrCredentialMalformed)
	}

	if claims.Subject == "" || claims.ChainID <= 0 || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", core.ErrCredentialMalformed)
	}
	if claims.Address != "" && claims.Address != claims.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", core.ErrCredentialMalformed)
	}

	session := &core.Session{
		ID:        claims.ID,
		Address:   claims.Subject,
		ChainID:   claims.ChainID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	return session, nil
}
