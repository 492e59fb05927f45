package tokenizer

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-for-jwt-signing-0123456789")

func newTestTokenizer(t *testing.T, now func() time.Time) *JWTTokenizer {
	t.Helper()
	tok, err := NewJWTTokenizer(testSecret, now)
	require.NoError(t, err)
	return tok
}

func testSession(issuedAt time.Time) *core.Session {
	return &core.Session{
		ID:        "0b7c2f3e-4d5a-4c61-9e8f-123456789abc",
		Address:   "0xabc0000000000000000000000000000000000001",
		ChainID:   11155111,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(24 * time.Hour),
	}
}

func TestNewJWTTokenizer_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTTokenizer([]byte("short"), nil)
	assert.Error(t, err)
}

func TestJWTTokenizer_RoundTrip(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	tok := newTestTokenizer(t, nil)
	session := testSession(issued)

	token, err := tok.SessionToToken(session)
	require.NoError(t, err)

	got, err := tok.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Address, got.Address)
	assert.Equal(t, session.ChainID, got.ChainID)
	assert.True(t, got.IssuedAt.Equal(issued))
	assert.True(t, got.ExpiresAt.Equal(issued.Add(24*time.Hour)))
}

func TestJWTTokenizer_Expired(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	tok := newTestTokenizer(t, func() time.Time { return now })

	token, err := tok.SessionToToken(testSession(issued))
	require.NoError(t, err)

	now = issued.Add(24*time.Hour + time.Second)
	_, err = tok.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrCredentialExpired)
}

func TestJWTTokenizer_Malformed(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	tok := newTestTokenizer(t, nil)

	valid, err := tok.SessionToToken(testSession(issued))
	require.NoError(t, err)

	other, err := NewJWTTokenizer([]byte("another-secret-key-for-jwt-signing-9876543"), nil)
	require.NoError(t, err)
	forged, err := other.SessionToToken(testSession(issued))
	require.NoError(t, err)

	sign := func(claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		return s
	}

	base := func() SessionClaims {
		return SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "0xabc0000000000000000000000000000000000001",
				IssuedAt:  jwt.NewNumericDate(issued),
				ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
				Audience:  jwt.ClaimStrings{AudienceSession},
			},
			Address: "0xabc0000000000000000000000000000000000001",
			ChainID: 1,
		}
	}

	noSubject := base()
	noSubject.Subject = ""
	noChain := base()
	noChain.ChainID = 0
	noExpiry := base()
	noExpiry.ExpiresAt = nil
	noIssuedAt := base()
	noIssuedAt.IssuedAt = nil
	wrongAudience := base()
	wrongAudience.Audience = jwt.ClaimStrings{"session:refresh"}
	subjectMismatch := base()
	subjectMismatch.Address = "0xdef0000000000000000000000000000000000002"

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, base()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: forged},
		{name: "tampered payload", token: tampered},
		{name: "alg none", token: unsigned},
		{name: "missing subject", token: sign(noSubject)},
		{name: "missing chain id", token: sign(noChain)},
		{name: "missing expiry", token: sign(noExpiry)},
		{name: "missing issued at", token: sign(noIssuedAt)},
		{name: "wrong audience", token: sign(wrongAudience)},
		{name: "subject mismatch", token: sign(subjectMismatch)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tok.TokenToSession(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrCredentialMalformed)
		})
	}
}
