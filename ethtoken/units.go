package ethtoken

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a base-unit amount as a decimal string, ie.
// FormatUnits(1500000000000, 12) is "1.5".
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// ParseUnits is the inverse of FormatUnits. Amounts with more fractional digits
// than decimals are rejected.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("ethtoken: invalid amount %q: %w", s, err)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("ethtoken: amount %q has more than %d decimals", s, decimals)
	}
	return scaled.BigInt(), nil
}
