package money

import (
	"fmt"
	"strings"
)

// Currency is an ISO-4217 code for the denominations a location can transact in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyAUD Currency = "AUD"
	CurrencyJPY Currency = "JPY"
)

type currencyInfo struct {
	exponent int32
	symbol   string
}

var supportedCurrencies = map[Currency]currencyInfo{
	CurrencyUSD: {exponent: 2, symbol: "$"},
	CurrencyCAD: {exponent: 2, symbol: "CA$"},
	CurrencyEUR: {exponent: 2, symbol: "€"},
	CurrencyGBP: {exponent: 2, symbol: "£"},
	CurrencyAUD: {exponent: 2, symbol: "A$"},
	CurrencyJPY: {exponent: 0, symbol: "¥"},
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	_, ok := supportedCurrencies[c]
	return ok
}

// Exponent returns the number of minor-unit digits (2 for cents, 0 for yen).
func (c Currency) Exponent() int32 {
	return supportedCurrencies[c].exponent
}

// Symbol returns the display symbol, falling back to the code.
func (c Currency) Symbol() string {
	if info, ok := supportedCurrencies[c]; ok {
		return info.symbol
	}
	return string(c) + " "
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	candidate := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
