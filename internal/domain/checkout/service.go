package checkout

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/checkout-intent/internal/domain/coupon"
	"github.com/xenking/checkout-intent/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/checkout-intent/internal/domain/checkout"

// Options configures Service telemetry. Zero values fall back to no-op
// providers.
type Options struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (o *Options) setDefaults() {
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
}

// Service turns a checkout Request into a charge authorization.
//
// It keeps no state between calls; the price tables are read-only.
type Service struct {
	gateway Gateway
	tracer  trace.Tracer

	authorizations metric.Int64Counter
	couponFailures metric.Int64Counter
}

// NewService creates a Service backed by the given payment gateway.
func NewService(gateway Gateway, opts Options) (*Service, error) {
	opts.setDefaults()
	meter := opts.MeterProvider.Meter(instrumentationName)

	authorizations, err := meter.Int64Counter("checkout.authorizations",
		metric.WithDescription("Charge authorization attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create authorizations counter")
	}
	couponFailures, err := meter.Int64Counter("checkout.coupon_lookup_failures",
		metric.WithDescription("Coupon lookups that failed and were ignored"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create coupon failures counter")
	}

	return &Service{
		gateway:        gateway,
		tracer:         opts.TracerProvider.Tracer(instrumentationName),
		authorizations: authorizations,
		couponFailures: couponFailures,
	}, nil
}

// Authorize prices the cart, applies the coupon if the processor knows it,
// and requests a charge authorization exactly once.
//
// Coupon lookup problems never fail the checkout: the discount drops to zero
// and a warning is logged. Charge authorization failures are returned and
// wrap a *GatewayError when the processor rejected the request.
func (s *Service) Authorize(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Authorize")
	defer span.End()

	quote := pricing.QuoteCart(req.Cart)
	subtotal := quote.Subtotal()

	var discount int64
	if req.Cart.Coupon != "" {
		discount = s.couponDiscount(ctx, req.Cart.Coupon, subtotal)
	}
	amount := pricing.Settle(subtotal, discount)

	span.SetAttributes(
		attribute.String("checkout.package", req.Cart.PackageID),
		attribute.Int64("checkout.amount", amount),
		attribute.Int64("checkout.discount", discount),
	)

	auth, err := s.gateway.CreateIntent(ctx, buildIntent(req, quote, amount))
	if err != nil {
		s.authorizations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create intent")
		return nil, errors.Wrap(err, "create intent")
	}
	s.authorizations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "created")))

	return &Result{
		IntentID:     auth.ID,
		ClientSecret: auth.ClientSecret,
		Amount:       amount,
		Discount:     discount,
	}, nil
}

// couponDiscount resolves code against the processor's coupons. It returns 0
// when the code is unknown or the lookup fails.
func (s *Service) couponDiscount(ctx context.Context, code string, subtotal int64) int64 {
	ctx, span := s.tracer.Start(ctx, "checkout.CouponDiscount")
	defer span.End()

	coupons, err := s.gateway.ListCoupons(ctx)
	if err != nil {
		s.couponFailures.Add(ctx, 1)
		span.RecordError(err)
		zctx.From(ctx).Warn("Coupon verification failed, proceeding without discount",
			zap.String("coupon", code),
			zap.Error(err),
		)
		return 0
	}

	c, ok := coupon.Match(coupons, code)
	if !ok {
		zctx.From(ctx).Debug("Coupon not found", zap.String("coupon", code))
		return 0
	}
	span.SetAttributes(attribute.String("coupon.id", c.ID))
	return c.Discount(subtotal)
}

// buildIntent assembles the charge authorization request for a priced cart.
func buildIntent(req Request, quote pricing.Quote, amount int64) Intent {
	cart := req.Cart

	metadata := map[string]string{
		MetaUpgrades:           joinUpgrades(cart.Upgrades),
		MetaCustomerSize:       orDefault(cart.Size, "Not Selected"),
		MetaLifetimeProtection: strconv.FormatBool(quote.LifetimeProtection),
		MetaPriorityHandling:   strconv.FormatBool(quote.PriorityHandling),
		MetaCouponApplied:      orDefault(cart.Coupon, "none"),
	}
	if cart.PackageID != "" {
		metadata[MetaPackage] = cart.PackageID
	}

	return Intent{
		Amount:                  amount,
		Currency:                Currency,
		Metadata:                metadata,
		ReceiptEmail:            strings.TrimSpace(req.Email),
		AutomaticPaymentMethods: true,
	}
}

// joinUpgrades renders the upgrade list for metadata. A missing list is
// "none"; an empty list renders as an empty string.
func joinUpgrades(upgrades []string) string {
	if upgrades == nil {
		return "none"
	}
	return strings.Join(upgrades, ", ")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
