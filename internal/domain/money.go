package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var minorUnitFactor = decimal.NewFromInt(100)

// ParseAmount converts a decimal amount string such as "19.99" into integer minor
// units (1999). Sub-cent precision rounds half away from zero, so "10.005"
// becomes 1001. WooCommerce totals and PSP amount fields both travel through
// this helper so the two can never drift apart.
func ParseAmount(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("domain: empty amount")
	}
	dec, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("domain: invalid amount %q: %w", value, err)
	}
	return dec.Mul(minorUnitFactor).Round(0).IntPart(), nil
}

// FormatAmount renders minor units back into the decimal string WooCommerce
// expects, e.g. 1999 -> "19.99".
func FormatAmount(minor int64) string {
	return decimal.NewFromInt(minor).Div(minorUnitFactor).StringFixed(2)
}

// NormalizeCurrency uppercases and trims an ISO 4217 code, returning the
// fallback when the input is empty.
func NormalizeCurrency(code, fallback string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return fallback
	}
	return code
}
