// Package config loads service settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port     string
	AppEnv   string
	DBURL    string
	RedisURL string

	JWTSecret    string
	OIDCIssuer   string
	OIDCClientID string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProductID     string

	AppURL     string
	CORSOrigin string

	LogLevel  string
	LogFormat string

	GateFailOpen    bool
	GateExemptPaths []string

	StoreTimeout     time.Duration
	GatewayTimeout   time.Duration
	UsageSnapshotTTL time.Duration
}

// Load reads .env (when present) and the process environment. Malformed
// values are errors; missing required keys are reported by Validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		DBURL:    getEnv("DB_URL", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
		OIDCClientID: getEnv("OIDC_CLIENT_ID", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeProductID:     getEnv("STRIPE_PRODUCT_ID", ""),

		AppURL:     strings.TrimSuffix(getEnv("APP_URL", "http://localhost:5173"), "/"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		GateExemptPaths: splitList(getEnv("GATE_EXEMPT_PATHS", "/auth,/webhook,/plans,/health,/metrics")),
	}

	var errs []error
	var err error
	if cfg.GateFailOpen, err = boolEnv("GATE_FAIL_OPEN", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 2*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.GatewayTimeout, err = durationEnv("GATEWAY_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.UsageSnapshotTTL, err = durationEnv("USAGE_SNAPSHOT_TTL", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate reports every missing required key. DB_URL and the Stripe keys
// are optional outside production, where in-memory stores and a gateway-less
// engine stand in.
func (c *Config) Validate() error {
	var missing []string
	if c.JWTSecret == "" && c.OIDCIssuer == "" {
		missing = append(missing, "JWT_SECRET or OIDC_ISSUER")
	}
	if c.OIDCIssuer != "" && c.OIDCClientID == "" {
		missing = append(missing, "OIDC_CLIENT_ID")
	}
	if c.IsProduction() {
		if c.DBURL == "" {
			missing = append(missing, "DB_URL")
		}
		if c.StripeSecretKey == "" {
			missing = append(missing, "STRIPE_SECRET_KEY")
		}
		if c.StripeWebhookSecret == "" {
			missing = append(missing, "STRIPE_WEBHOOK_SECRET")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
