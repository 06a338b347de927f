package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

const (
	envPrefix   = "CHECKOUT"
	defaultAddr = "0.0.0.0:8080"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address" validate:"required,hostname_port"`
	Stripe    StripeConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StripeConfig configures the payment processor client.
//
// SecretKey is not required at load time: a missing key keeps the server up
// and every checkout answers with an initialization error.
type StripeConfig struct {
	SecretKey string        `usage:"Stripe secret API key (CHECKOUT_STRIPE_SECRET_KEY or STRIPE_SECRET_KEY)" flag:"stripe-secret-key"`
	APIBase   string        `default:"" usage:"Override the Stripe API base URL (stripe-mock)" flag:"stripe-api-base" validate:"omitempty,url"`
	Timeout   time.Duration `default:"80s" usage:"Timeout of a single Stripe API call" validate:"gt=0"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window" validate:"gt=0"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration" validate:"gt=0"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay" validate:"gte=0"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout" validate:"gt=0"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	acfg.EnvPrefix = envPrefix

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps well-known environment variables onto the
// CHECKOUT_-prefixed configuration: PORT from hosting platforms and
// STRIPE_SECRET_KEY as used by the storefront's serverless deployment.
func (c *Config) applyPlatformDefaults() {
	if c.Stripe.SecretKey == "" {
		c.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
