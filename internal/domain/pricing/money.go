package pricing

import "github.com/shopspring/decimal"

// ToMajor converts minor units to major units (cents to dollars).
func ToMajor(minor int64) float64 {
	return decimal.New(minor, -2).InexactFloat64()
}
