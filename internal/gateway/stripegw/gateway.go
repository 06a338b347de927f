// Package stripegw implements the checkout payment gateway on top of the Stripe
// API: coupons come from the Stripe coupon registry and charge authorizations
// are PaymentIntents.
package stripegw

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/stripe/stripe-go/v84"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/checkout-intent/internal/domain/checkout"
	"github.com/xenking/checkout-intent/internal/domain/coupon"
)

var _ checkout.Gateway = (*Gateway)(nil)

// ErrMissingSecretKey is returned by New when no API key is configured.
var ErrMissingSecretKey = errors.New("missing Stripe secret key")

// couponPageSize is the largest page the coupon list endpoint serves.
const couponPageSize = 100

// Config configures the Stripe gateway.
type Config struct {
	SecretKey string
	// APIBase overrides the API endpoint, e.g. for stripe-mock.
	APIBase string
	// Timeout bounds a single HTTP call to Stripe.
	Timeout time.Duration

	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
}

// Gateway talks to Stripe.
type Gateway struct {
	sc *stripe.Client
}

// New builds a Gateway. It fails with ErrMissingSecretKey when the secret key
// is blank, so a misconfigured deployment is detected before any request.
func New(cfg Config) (*Gateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, ErrMissingSecretKey
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 80 * time.Second
	}

	transportOpts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "stripe " + r.Method + " " + r.URL.Path
		}),
	}
	if cfg.TracerProvider != nil {
		transportOpts = append(transportOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
		},
		// Charge authorizations are submitted exactly once.
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     cfg.Logger.Named("stripe").Sugar(),
	}
	if cfg.APIBase != "" {
		backendCfg.URL = stripe.String(strings.TrimRight(cfg.APIBase, "/"))
	}

	sc := stripe.NewClient(key, stripe.WithBackends(stripe.NewBackendsWithConfig(backendCfg)))
	return &Gateway{sc: sc}, nil
}

// ListCoupons returns every coupon in the account, following pagination.
func (g *Gateway) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	params := &stripe.CouponListParams{}
	params.Limit = stripe.Int64(couponPageSize)

	var out []coupon.Coupon
	for c, err := range g.sc.V1Coupons.List(ctx, params) {
		if err != nil {
			return nil, errors.Wrap(convertError(err), "list coupons")
		}
		out = append(out, coupon.Coupon{
			ID:         c.ID,
			Name:       c.Name,
			PercentOff: c.PercentOff,
			AmountOff:  c.AmountOff,
		})
	}
	return out, nil
}

// CreateIntent creates a PaymentIntent for the given charge.
func (g *Gateway) CreateIntent(ctx context.Context, intent checkout.Intent) (*checkout.Authorization, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(intent.Amount),
		Currency: stripe.String(intent.Currency),
		Metadata: intent.Metadata,
	}
	if intent.AutomaticPaymentMethods {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	if intent.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(intent.ReceiptEmail)
	}

	pi, err := g.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}
	return &checkout.Authorization{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// convertError maps Stripe API errors to *checkout.GatewayError so callers
// can surface the processor message without depending on stripe-go.
func convertError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = http.StatusText(se.HTTPStatusCode)
		}
		return &checkout.GatewayError{
			Message: msg,
			Type:    string(se.Type),
			Err:     err,
		}
	}
	return &checkout.GatewayError{Message: err.Error(), Err: err}
}
