package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig() (*Config, error) {
	return loadConfig(aconfig.Config{SkipFlags: true, SkipFiles: true})
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("PORT", "")

	cfg, err := loadTestConfig()
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Empty(t, cfg.Stripe.SecretKey)
	assert.Equal(t, 80*time.Second, cfg.Stripe.Timeout)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("CHECKOUT_ADDR", "127.0.0.1:9000")
	t.Setenv("CHECKOUT_STRIPE_SECRET_KEY", "sk_test_prefixed")
	t.Setenv("CHECKOUT_RATE_LIMIT_MAX", "5")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_plain")

	cfg, err := loadTestConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "sk_test_prefixed", cfg.Stripe.SecretKey)
	assert.Equal(t, 5, cfg.RateLimit.Max)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_plain")
	t.Setenv("PORT", "3000")

	cfg, err := loadTestConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk_test_plain", cfg.Stripe.SecretKey)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("CHECKOUT_RATE_LIMIT_MAX", "0")

	_, err := loadTestConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}
