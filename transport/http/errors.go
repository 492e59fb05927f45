package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
)

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// statusFor maps a domain error to its HTTP status and client-facing message
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, core.ErrValidation.Error()
	case errors.Is(err, core.ErrMessageMalformed):
		return http.StatusBadRequest, core.ErrMessageMalformed.Error()
	case errors.Is(err, core.ErrChainMismatch):
		return http.StatusBadRequest, core.ErrChainMismatch.Error()
	case errors.Is(err, core.ErrSignatureInvalid):
		return http.StatusUnauthorized, core.ErrSignatureInvalid.Error()
	case errors.Is(err, core.ErrDomainMismatch):
		return http.StatusUnauthorized, core.ErrDomainMismatch.Error()
	case errors.Is(err, core.ErrMessageExpired):
		return http.StatusUnauthorized, core.ErrMessageExpired.Error()
	case errors.Is(err, core.ErrNonceInvalid):
		return http.StatusUnauthorized, core.ErrNonceInvalid.Error()
	case errors.Is(err, core.ErrCredentialExpired),
		errors.Is(err, core.ErrCredentialMalformed),
		errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, core.ErrUnauthenticated.Error()
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests, core.ErrRateLimited.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// abortWithError writes the error body and stops the handler chain.
// Internal errors are logged and never echoed to the client.
func abortWithError(c *gin.Context, logger *slog.Logger, err error) {
	status, msg := statusFor(err)
	resp := errorResponse{Error: msg}

	var rl *core.RateLimitedError
	if errors.As(err, &rl) {
		resp.RetryAfter = retryAfterSeconds(rl)
		c.Header("Retry-After", strconv.Itoa(resp.RetryAfter))
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, resp)
}

func retryAfterSeconds(rl *core.RateLimitedError) int {
	secs := int(math.Ceil(rl.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
