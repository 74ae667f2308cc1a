package cart

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/strengthworks/storefront-api/internal/domain"
)

// FormatPrice renders minor units as a localised price string with the
// currency symbol, e.g. 1999/EUR -> "€ 19.99". Unknown currency codes fall
// back to the bare decimal amount.
func FormatPrice(minor int64, code string, tag language.Tag) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return domain.FormatAmount(minor)
	}
	amount := unit.Amount(float64(minor) / 100)
	return message.NewPrinter(tag).Sprint(currency.Symbol(amount))
}
