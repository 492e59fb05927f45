package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/ratelimit"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	eventPub := events.NewWatermillPublisher(pubSub)

	nonces := store.NewMemoryNonceStore(10*time.Minute, nil)
	tok, err := tokenizer.NewJWTTokenizer([]byte("0123456789abcdef0123456789abcdef"), nil)
	require.NoError(t, err)

	auth := service.NewAuthService(
		nonces,
		service.NewSignatureVerifier(service.VerifierConfig{
			Domain:    "localhost:3000",
			URI:       "http://localhost:3000",
			ChainID:   11155111,
			MaxAge:    10 * time.Minute,
			ClockSkew: time.Minute,
		}, nonces, nil),
		service.NewSessionIssuer(tok, 24*time.Hour, nil),
		service.Limiters{},
		eventPub,
		service.ChallengeConfig{Domain: "localhost:3000", URI: "http://localhost:3000", ChainID: 11155111},
		service.WithLogger(logger),
	)

	faucet, err := service.NewFaucetService(
		ratelimit.NewMemoryLimiter(ratelimit.Limit{Max: 1, Window: time.Minute}, nil),
		eventPub,
		service.FaucetConfig{Amount: decimal.NewFromInt(5), Decimals: 18},
		service.WithLogger(logger),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(transport.SetupRouter(transport.RouterConfig{Auth: auth, Faucet: faucet, Logger: logger}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SignInAndClaim(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL+"/", srv.Client())
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())

	session, err := c.SignIn(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, address, session.Address)
	assert.Equal(t, int64(11155111), session.ChainID)

	me, err := c.Me(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{Address: address, ChainID: 11155111}, me)

	claim, err := c.Claim(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000000", claim.Amount)

	_, err = c.Claim(ctx, session.Token)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Greater(t, apiErr.RetryAfter, time.Duration(0))
}

func TestClient_Errors(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, nil)
	ctx := context.Background()

	_, err := c.Challenge(ctx, "not-an-address")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	_, err = c.Me(ctx, "bogus")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthenticated", apiErr.Message)
}
