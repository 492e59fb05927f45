package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MinSecretLength is the shortest accepted JWT secret in bytes
const MinSecretLength = 32

// LookupFunc reads one setting, os.LookupEnv in production
type LookupFunc func(key string) (string, bool)

// RateLimit is a fixed-window ceiling
type RateLimit struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

type RateLimits struct {
	Challenge RateLimit `yaml:"challenge"`
	Verify    RateLimit `yaml:"verify"`
	Claim     RateLimit `yaml:"claim"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type FaucetConfig struct {
	TokenAddress  string `yaml:"token_address"`
	ClaimAmount   string `yaml:"claim_amount"`
	TokenDecimals int32  `yaml:"token_decimals"`
}

// Config is the service configuration
type Config struct {
	HTTPAddr           string        `yaml:"http_addr"`
	JWTSecret          string        `yaml:"jwt_secret"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	NonceTTL           time.Duration `yaml:"nonce_ttl"`
	MessageMaxAge      time.Duration `yaml:"message_max_age"`
	ClockSkew          time.Duration `yaml:"clock_skew"`
	ChainID            int64         `yaml:"chain_id"`
	Domain             string        `yaml:"domain"`
	Origin             string        `yaml:"origin"`
	Statement          string        `yaml:"statement"`
	RateLimits         RateLimits    `yaml:"rate_limits"`
	NonceSweepInterval time.Duration `yaml:"nonce_sweep_interval"`
	RedisURL           string        `yaml:"redis_url"`
	TrustedProxies     []string      `yaml:"trusted_proxies"`
	Log                LogConfig     `yaml:"log"`
	Faucet             FaucetConfig  `yaml:"faucet"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		HTTPAddr:      ":8080",
		SessionTTL:    24 * time.Hour,
		NonceTTL:      10 * time.Minute,
		MessageMaxAge: 10 * time.Minute,
		ClockSkew:     time.Minute,
		ChainID:       11155111, // Sepolia
		Domain:        "localhost:3000",
		Origin:        "http://localhost:3000",
		Statement:     "Sign in with Ethereum to the app.",
		RateLimits: RateLimits{
			Challenge: RateLimit{Max: 3, Window: time.Minute},
			Verify:    RateLimit{Max: 3, Window: time.Minute},
			Claim:     RateLimit{Max: 2, Window: 30 * time.Second},
		},
		NonceSweepInterval: time.Minute,
		Log:                LogConfig{Level: "info", Format: "json"},
		Faucet:             FaucetConfig{ClaimAmount: "100", TokenDecimals: 18},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE and finally the environment, then validates it.
func Load(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()
	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("HTTP_ADDR", &c.HTTPAddr)
	env.str("JWT_SECRET", &c.JWTSecret)
	env.duration("SESSION_TTL", &c.SessionTTL)
	env.duration("NONCE_TTL", &c.NonceTTL)
	env.duration("MESSAGE_MAX_AGE", &c.MessageMaxAge)
	env.duration("CLOCK_SKEW", &c.ClockSkew)
	env.int64("CHAIN_ID", &c.ChainID)
	env.str("AUTH_DOMAIN", &c.Domain)
	env.str("AUTH_ORIGIN", &c.Origin)
	env.str("AUTH_STATEMENT", &c.Statement)
	env.limit("RATE_LIMIT_CHALLENGE", &c.RateLimits.Challenge)
	env.limit("RATE_LIMIT_VERIFY", &c.RateLimits.Verify)
	env.limit("RATE_LIMIT_CLAIM", &c.RateLimits.Claim)
	env.duration("NONCE_SWEEP_INTERVAL", &c.NonceSweepInterval)
	env.str("REDIS_URL", &c.RedisURL)
	env.list("TRUSTED_PROXIES", &c.TrustedProxies)
	env.str("LOG_LEVEL", &c.Log.Level)
	env.str("LOG_FORMAT", &c.Log.Format)
	env.str("FAUCET_TOKEN_ADDRESS", &c.Faucet.TokenAddress)
	env.str("FAUCET_CLAIM_AMOUNT", &c.Faucet.ClaimAmount)

	decimals := int64(c.Faucet.TokenDecimals)
	env.int64("FAUCET_TOKEN_DECIMALS", &decimals)
	c.Faucet.TokenDecimals = int32(decimals)

	return errors.Join(env.errs...)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.NonceTTL <= 0 {
		errs = append(errs, errors.New("NONCE_TTL must be positive"))
	}
	if c.MessageMaxAge <= 0 {
		errs = append(errs, errors.New("MESSAGE_MAX_AGE must be positive"))
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("CLOCK_SKEW must not be negative"))
	}
	if c.ChainID <= 0 {
		errs = append(errs, errors.New("CHAIN_ID must be positive"))
	}
	if c.Domain == "" || strings.ContainsAny(c.Domain, " \t\n") {
		errs = append(errs, errors.New("AUTH_DOMAIN must be a non-empty host"))
	}
	if c.Origin == "" || strings.ContainsAny(c.Origin, " \t\n") {
		errs = append(errs, errors.New("AUTH_ORIGIN must be a non-empty URI"))
	}
	if strings.ContainsAny(c.Statement, "\r\n") {
		errs = append(errs, errors.New("AUTH_STATEMENT must be a single line"))
	}
	for name, l := range map[string]RateLimit{
		"CHALLENGE": c.RateLimits.Challenge,
		"VERIFY":    c.RateLimits.Verify,
		"CLAIM":     c.RateLimits.Claim,
	} {
		if l.Max < 1 || l.Window <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_%s needs a positive max and window", name))
		}
	}
	if c.NonceSweepInterval <= 0 {
		errs = append(errs, errors.New("NONCE_SWEEP_INTERVAL must be positive"))
	}
	if _, err := c.FaucetAmount(); err != nil {
		errs = append(errs, err)
	}
	if c.Faucet.TokenDecimals < 0 || c.Faucet.TokenDecimals > 36 {
		errs = append(errs, errors.New("FAUCET_TOKEN_DECIMALS must be between 0 and 36"))
	}

	return errors.Join(errs...)
}

// FaucetAmount parses the per-claim amount in whole tokens
func (c *Config) FaucetAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(c.Faucet.ClaimAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("FAUCET_CLAIM_AMOUNT: %w", err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.New("FAUCET_CLAIM_AMOUNT must be positive")
	}
	return amount, nil
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (e *envReader) int64(key string, dst *int64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) limit(prefix string, dst *RateLimit) {
	n := int64(dst.Max)
	e.int64(prefix+"_MAX", &n)
	dst.Max = int(n)
	e.duration(prefix+"_WINDOW", &dst.Window)
}
