package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/service"
)

// RouterConfig holds what SetupRouter wires together
type RouterConfig struct {
	Auth           *service.AuthService
	Faucet         *service.FaucetService // Optional, disables /api/faucet/claim when nil
	Metrics        http.Handler           // Optional, disables /metrics when nil
	Logger         *slog.Logger
	TrustedProxies []string // Proxies allowed to set the client IP, none when empty
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(Recovery(logger), RequestLogger(logger))
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("ignoring invalid trusted proxies", "error", err)
		_ = router.SetTrustedProxies(nil)
	}

	handlers := NewAuthHandlers(cfg.Auth, cfg.Faucet, logger)
	gate := NewAuthGate(cfg.Auth, logger)

	router.GET("/healthz", handlers.Healthz)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(gate.Middleware())
	{
		api.GET("/me", handlers.Me)
		if cfg.Faucet != nil {
			api.POST("/faucet/claim", handlers.Claim)
		}
	}

	return router
}
