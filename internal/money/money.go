package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BaseCode is the currency every catalog price is stored in.
const BaseCode = "RON"

var (
	// ErrCurrencyMismatch is returned when arithmetic mixes two currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInvalidAmount indicates an amount could not be parsed.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Money is a decimal amount tagged with an ISO currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New builds a Money value from a decimal amount.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: normalizeCode(currency)}
}

// RON is shorthand for an amount in the base currency.
func RON(amount decimal.Decimal) Money {
	return Money{Amount: amount, Currency: BaseCode}
}

// Parse reads a decimal string such as "12.50" into Money.
func Parse(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return New(d, currency), nil
}

// MustParse is Parse for literals in tests and seed data.
func MustParse(value, currency string) Money {
	m, err := Parse(value, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: normalizeCode(currency)}
}

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub subtracts other from m; both must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Times multiplies by an integer quantity.
func (m Money) Times(qty int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(qty))), Currency: m.Currency}
}

// Scale multiplies by a decimal factor without rounding.
func (m Money) Scale(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Round rounds half away from zero to the given number of places.
func (m Money) Round(places int32) Money {
	return Money{Amount: m.Amount.Round(places), Currency: m.Currency}
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// LessThan compares amounts of the same currency.
func (m Money) LessThan(other Money) bool {
	return m.Amount.LessThan(other.Amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// StringFixed formats the amount with a fixed number of decimals.
func (m Money) StringFixed(places int32) string {
	return m.Amount.StringFixed(places)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
