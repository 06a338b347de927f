// Package pricing holds the static price tables and the arithmetic used to
// turn a cart into a chargeable amount. All amounts are in minor currency
// units (cents).
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPackagePrice is charged when the package id is unknown or absent.
	DefaultPackagePrice int64 = 4995
	// MinimumCharge is the smallest amount the payment processor accepts.
	MinimumCharge int64 = 50
)

// Flag identifies a boolean attribute unlocked by an upgrade.
type Flag string

const (
	FlagLifetimeProtection Flag = "lifetime_protection"
	FlagPriorityHandling   Flag = "priority_handling"
)

// Upgrade is a single purchasable add-on.
type Upgrade struct {
	Price int64
	Flag  Flag
}

var packagePrices = map[string]int64{
	"1": 2999,
	"2": 4995,
	"3": 6700,
}

var upgrades = map[string]Upgrade{
	"upsell-1": {Price: 1999, Flag: FlagLifetimeProtection},
	"upsell-2": {Price: 999, Flag: FlagPriorityHandling},
}

// Cart describes what the customer asked to buy.
//
// Upgrades keeps request order and duplicates. A nil slice means the client
// sent no upgrade list at all, which is distinct from an empty one.
type Cart struct {
	PackageID string
	Upgrades  []string
	Size      string
	Coupon    string
}

// Quote is the pre-discount price of a cart.
type Quote struct {
	Base               int64
	Upgrades           int64
	LifetimeProtection bool
	PriorityHandling   bool
}

// Subtotal returns base plus upgrade surcharges.
func (q Quote) Subtotal() int64 {
	return q.Base + q.Upgrades
}

// PackagePrice returns the base price for the package id, falling back to
// DefaultPackagePrice for unknown ids.
func PackagePrice(id string) int64 {
	if p, ok := packagePrices[id]; ok {
		return p
	}
	return DefaultPackagePrice
}

// LookupUpgrade returns the upgrade registered under id.
func LookupUpgrade(id string) (Upgrade, bool) {
	u, ok := upgrades[id]
	return u, ok
}

// QuoteCart prices the cart. Every occurrence of an upgrade id is charged,
// so repeated ids add their price repeatedly.
func QuoteCart(cart Cart) Quote {
	q := Quote{Base: PackagePrice(cart.PackageID)}
	for _, id := range cart.Upgrades {
		u, ok := LookupUpgrade(id)
		if !ok {
			continue
		}
		q.Upgrades += u.Price
		switch u.Flag {
		case FlagLifetimeProtection:
			q.LifetimeProtection = true
		case FlagPriorityHandling:
			q.PriorityHandling = true
		}
	}
	return q
}

// Settle subtracts the discount and clamps the result to MinimumCharge.
func Settle(subtotal, discount int64) int64 {
	amount := subtotal - discount
	if amount < MinimumCharge {
		amount = MinimumCharge
	}
	return amount
}

// NormalizeNumericID canonicalizes a package id that arrived as a JSON number,
// so 2, 2.0 and 2e0 all select the same table row. Input that does not parse
// as a number is returned unchanged.
func NormalizeNumericID(raw string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return d.String()
}
