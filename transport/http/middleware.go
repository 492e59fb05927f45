package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
)

const identityKey = "identity"

// Authenticator resolves a bearer credential into an identity
type Authenticator interface {
	Authenticate(token string) (*core.Identity, error)
}

// AuthGate guards routes that need a valid session credential
type AuthGate struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewAuthGate creates a gate backed by auth
func NewAuthGate(auth Authenticator, logger *slog.Logger) *AuthGate {
	return &AuthGate{auth: auth, logger: logger}
}

// Authenticate extracts the bearer credential from r and validates it.
// Every failure wraps core.ErrUnauthenticated.
func (g *AuthGate) Authenticate(r *http.Request) (*core.Identity, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: missing bearer credential", core.ErrUnauthenticated)
	}

	identity, err := g.auth.Authenticate(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnauthenticated, err)
	}

	return identity, nil
}

// Middleware rejects unauthenticated requests with a uniform 401
func (g *AuthGate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := g.Authenticate(c.Request)
		if err != nil {
			g.logger.Debug("request not authenticated", "path", c.FullPath(), "error", err)
			abortWithError(c, g.logger, err)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity set by AuthGate
func IdentityFrom(c *gin.Context) (*core.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*core.Identity)
	return identity, ok
}

// RequestLogger logs one line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}

// Recovery turns panics into a generic 500
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	})
}
