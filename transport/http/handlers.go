package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService   *service.AuthService
	faucetService *service.FaucetService
	logger        *slog.Logger
}

// NewAuthHandlers creates new auth handlers. faucetService may be nil.
func NewAuthHandlers(authService *service.AuthService, faucetService *service.FaucetService, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService:   authService,
		faucetService: faucetService,
		logger:        logger,
	}
}

type challengeRequest struct {
	Address string `json:"address" binding:"required"`
}

type challengeResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.logger, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, challengeResponse{
		Message: challenge.Message(),
		Nonce:   challenge.Nonce,
	})
}

type verifyRequest struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type verifyResponse struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ChainID   int64     `json:"chainId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Verify exchanges a signed challenge for a session credential
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.logger, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	token, session, err := h.authService.Login(c.Request.Context(), c.ClientIP(), req.Message, req.Signature)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse{
		Token:     token,
		Address:   session.Address,
		ChainID:   session.ChainID,
		ExpiresAt: session.ExpiresAt,
	})
}

type meResponse struct {
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		abortWithError(c, h.logger, core.ErrUnauthenticated)
		return
	}

	c.JSON(http.StatusOK, meResponse{Address: identity.Address, ChainID: identity.ChainID})
}

type claimResponse struct {
	RequestID string `json:"requestId"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
}

// Claim queues a faucet payout for the authenticated user
func (h *AuthHandlers) Claim(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		abortWithError(c, h.logger, core.ErrUnauthenticated)
		return
	}

	claim, err := h.faucetService.Claim(c.Request.Context(), identity)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, claimResponse{
		RequestID: claim.ID,
		Address:   claim.Address,
		Amount:    claim.Amount,
	})
}

// Healthz reports liveness
func (h *AuthHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
