// Package money models exact, non-negative amounts in a currency's minor units.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents for USD) paired with its currency.
type Money struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}

// New validates amount and currency before building a Money value.
func New(amount int64, currency Currency) (Money, error) {
	if amount < 0 {
		return Money{}, fmt.Errorf("amount must be non-negative, got %d", amount)
	}
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("invalid currency %q", currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Zero returns an empty amount in currency.
func Zero(currency Currency) Money {
	return Money{Currency: currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Add sums two amounts. Mixing currencies is a programming error and panics;
// carts are single-currency by construction.
func (m Money) Add(other Money) Money {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: expected %s, got %s", m.Currency, other.Currency))
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Decimal returns the amount in major units, e.g. 350 USD -> 3.50.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -m.Currency.Exponent())
}

// String formats the amount with its currency symbol, e.g. "$3.50" or "¥500".
func (m Money) String() string {
	return m.Currency.Symbol() + m.Decimal().StringFixed(m.Currency.Exponent())
}
