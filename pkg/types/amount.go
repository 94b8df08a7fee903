package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for unparseable, non-positive, or
// over-precise amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a positive decimal string into base units for an
// asset with the given precision ("1.5", 18 -> 1500000000000000000).
func ParseAmount(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	units := d.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return nil, fmt.Errorf("%w: too many decimal places (max %d)", ErrInvalidAmount, decimals)
	}
	return units.BigInt(), nil
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(units *big.Int, decimals int32) string {
	if units == nil {
		return "0"
	}
	return decimal.NewFromBigInt(units, -decimals).String()
}

// CompareAmounts compares two decimal strings. Unparseable input counts as zero.
func CompareAmounts(a, b string) int {
	return parseOrZero(a).Cmp(parseOrZero(b))
}

// AddAmounts sums decimal strings. Unparseable input counts as zero.
func AddAmounts(amounts ...string) string {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(parseOrZero(a))
	}
	return total.String()
}

// FormatBalance renders a balance for display with a fixed number of places.
// Dust below one unit in the last place is shown as "<0.0001" (for places=4).
func FormatBalance(amount string, places int32) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || d.IsZero() {
		return "0"
	}
	threshold := decimal.New(1, -places)
	if d.IsPositive() && d.LessThan(threshold) {
		return "<" + threshold.StringFixed(places)
	}
	return d.StringFixed(places)
}

// FormatAddress shortens an address to head...tail with chars on each side.
func FormatAddress(address string, chars int) string {
	if address == "" {
		return ""
	}
	if chars <= 0 || len(address) <= 2*chars {
		return address
	}
	return address[:chars] + "..." + address[len(address)-chars:]
}

func parseOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
