package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/metrics"
	"github.com/layer-3/walletauth/adapters/ratelimit"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("walletauth stopped", "error", err)
		os.Exit(1)
	}
}

// backend is the set of stateful adapters selected by configuration
type backend struct {
	nonces    ports.NonceStore
	limiters  service.Limiters
	publisher message.Publisher
	closers   []func() error
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	wmLogger := watermill.NewSlogLogger(logger.With("component", "watermill"))

	var (
		b   *backend
		err error
	)
	if cfg.RedisURL != "" {
		b, err = redisBackend(ctx, cfg, wmLogger)
	} else {
		b, err = memoryBackend(ctx, cfg, wmLogger, logger)
	}
	if err != nil {
		return err
	}
	defer func() {
		for i := len(b.closers) - 1; i >= 0; i-- {
			if err := b.closers[i](); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}()

	tok, err := tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret), nil)
	if err != nil {
		return err
	}

	m := metrics.NewPrometheusMetrics()
	eventPub := events.NewWatermillPublisher(b.publisher)
	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(m)}

	authService := service.NewAuthService(
		b.nonces,
		service.NewSignatureVerifier(service.VerifierConfig{
			Domain:    cfg.Domain,
			URI:       cfg.Origin,
			ChainID:   cfg.ChainID,
			MaxAge:    cfg.MessageMaxAge,
			ClockSkew: cfg.ClockSkew,
		}, b.nonces, nil),
		service.NewSessionIssuer(tok, cfg.SessionTTL, nil),
		b.limiters,
		eventPub,
		service.ChallengeConfig{
			Domain:    cfg.Domain,
			URI:       cfg.Origin,
			Statement: cfg.Statement,
			ChainID:   cfg.ChainID,
		},
		opts...,
	)

	amount, err := cfg.FaucetAmount()
	if err != nil {
		return err
	}
	faucetService, err := service.NewFaucetService(b.limiters.Claim, eventPub, service.FaucetConfig{
		Token:    cfg.Faucet.TokenAddress,
		Amount:   amount,
		Decimals: cfg.Faucet.TokenDecimals,
	}, opts...)
	if err != nil {
		return err
	}

	router := transport.SetupRouter(transport.RouterConfig{
		Auth:           authService,
		Faucet:         faucetService,
		Metrics:        m.Handler(),
		Logger:         logger,
		TrustedProxies: cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "chain_id", cfg.ChainID, "redis", cfg.RedisURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func redisBackend(ctx context.Context, cfg *config.Config, wmLogger watermill.LoggerAdapter) (*backend, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach Redis: %w", err)
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wmLogger)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	return &backend{
		nonces: store.NewRedisNonceStore(client, cfg.NonceTTL),
		limiters: service.Limiters{
			Challenge: ratelimit.NewRedisLimiter(client, service.ScopeChallenge, limitFrom(cfg.RateLimits.Challenge)),
			Verify:    ratelimit.NewRedisLimiter(client, service.ScopeVerify, limitFrom(cfg.RateLimits.Verify)),
			Claim:     ratelimit.NewRedisLimiter(client, service.ScopeClaim, limitFrom(cfg.RateLimits.Claim)),
		},
		publisher: publisher,
		closers:   []func() error{client.Close, publisher.Close},
	}, nil
}

// memoryBackend keeps all state in process and starts the sweepers bounding it
func memoryBackend(ctx context.Context, cfg *config.Config, wmLogger watermill.LoggerAdapter, logger *slog.Logger) (*backend, error) {
	nonces := store.NewMemoryNonceStore(cfg.NonceTTL, nil)
	challenge := ratelimit.NewMemoryLimiter(limitFrom(cfg.RateLimits.Challenge), nil)
	verify := ratelimit.NewMemoryLimiter(limitFrom(cfg.RateLimits.Verify), nil)
	claim := ratelimit.NewMemoryLimiter(limitFrom(cfg.RateLimits.Claim), nil)

	go store.RunSweeper(ctx, "nonces", nonces, cfg.NonceSweepInterval, logger)
	go store.RunSweeper(ctx, "challenge-limiter", challenge, cfg.NonceSweepInterval, logger)
	go store.RunSweeper(ctx, "verify-limiter", verify, cfg.NonceSweepInterval, logger)
	go store.RunSweeper(ctx, "claim-limiter", claim, cfg.NonceSweepInterval, logger)

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)

	return &backend{
		nonces:    nonces,
		limiters:  service.Limiters{Challenge: challenge, Verify: verify, Claim: claim},
		publisher: pubSub,
		closers:   []func() error{pubSub.Close},
	}, nil
}

func limitFrom(l config.RateLimit) ratelimit.Limit {
	return ratelimit.Limit{Max: l.Max, Window: l.Window}
}
