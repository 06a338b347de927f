package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackagePrice(t *testing.T) {
	tests := []struct {
		id   string
		want int64
	}{
		{id: "1", want: 2999},
		{id: "2", want: 4995},
		{id: "3", want: 6700},
		{id: "", want: 4995},
		{id: "4", want: 4995},
		{id: "premium", want: 4995},
		{id: "01", want: 4995},
	}

	for _, tt := range tests {
		t.Run("id="+tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, PackagePrice(tt.id))
		})
	}
}

func TestQuoteCart(t *testing.T) {
	tests := []struct {
		name         string
		cart         Cart
		wantSubtotal int64
		wantLifetime bool
		wantPriority bool
	}{
		{
			name:         "package only",
			cart:         Cart{PackageID: "1"},
			wantSubtotal: 2999,
		},
		{
			name:         "both upgrades",
			cart:         Cart{PackageID: "2", Upgrades: []string{"upsell-1", "upsell-2"}},
			wantSubtotal: 4995 + 1999 + 999,
			wantLifetime: true,
			wantPriority: true,
		},
		{
			name:         "duplicates are charged again",
			cart:         Cart{PackageID: "3", Upgrades: []string{"upsell-2", "upsell-2", "upsell-2"}},
			wantSubtotal: 6700 + 3*999,
			wantPriority: true,
		},
		{
			name:         "unknown upgrades are free and set no flag",
			cart:         Cart{PackageID: "1", Upgrades: []string{"upsell-9", "UPSELL-1", ""}},
			wantSubtotal: 2999,
		},
		{
			name:         "unknown package uses default price",
			cart:         Cart{PackageID: "x", Upgrades: []string{"upsell-1"}},
			wantSubtotal: 4995 + 1999,
			wantLifetime: true,
		},
		{
			name:         "empty upgrade list",
			cart:         Cart{PackageID: "2", Upgrades: []string{}},
			wantSubtotal: 4995,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuoteCart(tt.cart)
			assert.Equal(t, tt.wantSubtotal, q.Subtotal())
			assert.Equal(t, tt.wantLifetime, q.LifetimeProtection)
			assert.Equal(t, tt.wantPriority, q.PriorityHandling)
		})
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		discount int64
		want     int64
	}{
		{name: "no discount", subtotal: 2999, discount: 0, want: 2999},
		{name: "discount applied", subtotal: 10000, discount: 1000, want: 9000},
		{name: "exactly minimum", subtotal: 1050, discount: 1000, want: 50},
		{name: "below minimum clamps", subtotal: 1049, discount: 1000, want: 50},
		{name: "negative clamps", subtotal: 2999, discount: 100000, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Settle(tt.subtotal, tt.discount))
		})
	}
}

func TestToMajor(t *testing.T) {
	assert.InDelta(t, 29.99, ToMajor(2999), 1e-9)
	assert.InDelta(t, 79.93, ToMajor(7993), 1e-9)
	assert.InDelta(t, 0.5, ToMajor(50), 1e-9)
	assert.Zero(t, ToMajor(0))
}

func TestNormalizeNumericID(t *testing.T) {
	assert.Equal(t, "2", NormalizeNumericID("2"))
	assert.Equal(t, "2", NormalizeNumericID("2.0"))
	assert.Equal(t, "2", NormalizeNumericID("2e0"))
	assert.Equal(t, "2.5", NormalizeNumericID("2.5"))
	assert.Equal(t, "abc", NormalizeNumericID("abc"))
}
