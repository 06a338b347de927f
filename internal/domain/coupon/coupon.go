// Package coupon models discount coupons owned by the payment processor.
// Coupons are read here, never created or modified.
package coupon

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Coupon is a processor-side discount definition.
type Coupon struct {
	ID   string
	Name string
	// PercentOff is a percentage in (0, 100]; zero means unset.
	PercentOff float64
	// AmountOff is a fixed discount in minor units; zero means unset.
	AmountOff int64
}

// Match returns the first coupon whose name or id equals code, ignoring case.
func Match(coupons []Coupon, code string) (Coupon, bool) {
	want := strings.ToUpper(code)
	for _, c := range coupons {
		if strings.ToUpper(c.Name) == want || strings.ToUpper(c.ID) == want {
			return c, true
		}
	}
	return Coupon{}, false
}

// Discount computes the discount in minor units for a pre-discount amount.
// A percentage discount takes precedence over a fixed one and is floored to
// whole minor units. A fixed discount is returned as is, even when it exceeds
// the amount.
func (c Coupon) Discount(amount int64) int64 {
	switch {
	case c.PercentOff != 0:
		return decimal.NewFromInt(amount).
			Mul(decimal.NewFromFloat(c.PercentOff)).
			Div(hundred).
			Floor().
			IntPart()
	case c.AmountOff != 0:
		return c.AmountOff
	default:
		return 0
	}
}
