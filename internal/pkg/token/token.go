// Package token converts between smallest-unit amounts and display units.
// Arithmetic always happens on smallest units; these helpers are for presentation
// and for parsing user input.
package token

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals of the native token (KLAY) and of every amount the contracts expose.
const Decimals = 18

// Format renders v with the given number of decimal places, rounding half away from zero.
func Format(v *big.Int, decimals, places int32) string {
	if v == nil {
		v = new(big.Int)
	}
	return decimal.NewFromBigInt(v, -decimals).StringFixed(places)
}

// FormatFiat converts v to a fiat estimate at price per whole token, two places.
func FormatFiat(v *big.Int, decimals int32, price float64) string {
	if v == nil || price <= 0 {
		return ""
	}
	return decimal.NewFromBigInt(v, -decimals).Mul(decimal.NewFromFloat(price)).StringFixed(2)
}

// Parse reads a display amount such as "150.5" into smallest units. More
// fractional digits than decimals is an error rather than a silent truncation.
func Parse(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: negative", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimal places", s, decimals)
	}
	return scaled.BigInt(), nil
}
