// Package checkout prices a cart on the server and asks the payment processor
// for a charge authorization the browser can complete.
package checkout

import (
	"context"
	"fmt"

	"github.com/xenking/checkout-intent/internal/domain/coupon"
	"github.com/xenking/checkout-intent/internal/domain/pricing"
)

// Currency is the only currency charges are created in.
const Currency = "usd"

// Metadata keys attached to every charge authorization. They match what the
// storefront dashboard already filters on, so they must not be renamed.
const (
	MetaPackage            = "package"
	MetaUpgrades           = "upgrades"
	MetaCustomerSize       = "Customer_Size"
	MetaLifetimeProtection = "Lifetime_Protection"
	MetaPriorityHandling   = "Priority_Handling"
	MetaCouponApplied      = "Coupon_Applied"
)

// Gateway is the payment processor as seen by the checkout flow.
type Gateway interface {
	// ListCoupons returns every coupon known to the processor.
	ListCoupons(ctx context.Context) ([]coupon.Coupon, error)
	// CreateIntent submits a charge authorization request. It is called at
	// most once per checkout and must not retry on its own.
	CreateIntent(ctx context.Context, intent Intent) (*Authorization, error)
}

// Intent is a charge authorization request.
type Intent struct {
	Amount   int64
	Currency string
	Metadata map[string]string
	// ReceiptEmail is empty when no receipt should be sent.
	ReceiptEmail string
	// AutomaticPaymentMethods lets the processor negotiate payment methods.
	AutomaticPaymentMethods bool
}

// Authorization is the processor's answer to an Intent.
type Authorization struct {
	ID           string
	ClientSecret string
}

// Request is a single checkout attempt.
type Request struct {
	Cart  pricing.Cart
	Email string
}

// Result is a successful checkout. Amounts are in minor units.
type Result struct {
	IntentID     string
	ClientSecret string
	Amount       int64
	Discount     int64
}

// GatewayError reports a failed charge authorization. Message is the
// processor's human readable explanation and is safe to show to clients.
type GatewayError struct {
	Message string
	Type    string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Type)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
