// Package client is a Go client for the walletauth HTTP API.
package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/internal/eth"
)

// Session is a credential returned by a successful sign-in
type Session struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ChainID   int64     `json:"chainId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Challenge is a message to sign
type Challenge struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// Identity is what the service knows about the bearer of a credential
type Identity struct {
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
}

// Claim is an accepted faucet request
type Claim struct {
	RequestID string `json:"requestId"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("walletauth: %d %s (retry after %s)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("walletauth: %d %s", e.StatusCode, e.Message)
}

// Client talks to a walletauth server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. A nil httpClient uses a client with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Challenge requests a message to sign for address
func (c *Client) Challenge(ctx context.Context, address string) (*Challenge, error) {
	var out Challenge
	if err := c.do(ctx, http.MethodPost, "/auth/challenge", "", map[string]string{"address": address}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify exchanges a signed message for a session
func (c *Client) Verify(ctx context.Context, message, signature string) (*Session, error) {
	var out Session
	body := map[string]string{"message": message, "signature": signature}
	if err := c.do(ctx, http.MethodPost, "/auth/verify", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignIn runs the full challenge, sign and verify flow with key
func (c *Client) SignIn(ctx context.Context, key *ecdsa.PrivateKey) (*Session, error) {
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := c.Challenge(ctx, address)
	if err != nil {
		return nil, err
	}

	sig, err := eth.SignPersonal([]byte(challenge.Message), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}

	return c.Verify(ctx, challenge.Message, hexutil.Encode(sig))
}

// Me returns the identity bound to token
func (c *Client) Me(ctx context.Context, token string) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodGet, "/api/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Claim requests a faucet payout for the bearer of token
func (c *Client) Claim(ctx context.Context, token string) (*Claim, error) {
	var out Claim
	if err := c.do(ctx, http.MethodPost, "/api/faucet/claim", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}

	return apiErr
}
