package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GATE_EXEMPT_PATHS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.GateFailOpen)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Empty(t, cfg.GateExemptPaths)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GATE_FAIL_OPEN", "false")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("GATE_EXEMPT_PATHS", " /health , /webhook,")
	t.Setenv("APP_URL", "https://crm.example/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.GateFailOpen)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, []string{"/health", "/webhook"}, cfg.GateExemptPaths)
	assert.Equal(t, "https://crm.example", cfg.AppURL)
}

func TestLoad_MalformedValues(t *testing.T) {
	t.Setenv("GATE_FAIL_OPEN", "sometimes")
	t.Setenv("GATEWAY_TIMEOUT", "-1s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATE_FAIL_OPEN")
	assert.Contains(t, err.Error(), "GATEWAY_TIMEOUT")
}

func TestValidate_Production(t *testing.T) {
	cfg := &Config{AppEnv: "production", JWTSecret: "x"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")

	cfg = &Config{OIDCIssuer: "https://idp.example"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OIDC_CLIENT_ID")
}
