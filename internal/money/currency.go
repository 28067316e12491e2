package money

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyNotFound is returned when a currency code does not resolve.
	ErrCurrencyNotFound = errors.New("currency not found")
	// ErrCurrencyInactive is returned when converting into a disabled currency.
	ErrCurrencyInactive = errors.New("currency inactive")
	// ErrInvalidRegistry indicates the currency table violates the single-base rule.
	ErrInvalidRegistry = errors.New("invalid currency registry")
)

// Currency is an administrator-managed display currency.
type Currency struct {
	Code               string          `json:"code"`
	IsBase             bool            `json:"is_base"`
	ExchangeRateToBase decimal.Decimal `json:"exchange_rate_to_base"`
	SymbolLeft         string          `json:"symbol_left"`
	SymbolRight        string          `json:"symbol_right"`
	DecimalPlaces      int32           `json:"decimal_places"`
	Active             bool            `json:"active"`
}

// Format renders the amount with the currency symbols, e.g. "€20.00" or "100.00 lei".
func (c Currency) Format(m Money) string {
	return c.SymbolLeft + m.Amount.StringFixed(c.DecimalPlaces) + c.SymbolRight
}

// Registry indexes currencies by code and knows the base currency.
type Registry struct {
	byCode map[string]Currency
	base   Currency
}

// NewRegistry validates that exactly one active base currency exists with rate 1.
func NewRegistry(currencies []Currency) (*Registry, error) {
	r := &Registry{byCode: make(map[string]Currency, len(currencies))}
	bases := 0
	for _, c := range currencies {
		c.Code = normalizeCode(c.Code)
		if c.Code == "" {
			return nil, fmt.Errorf("%w: empty currency code", ErrInvalidRegistry)
		}
		if c.IsBase && c.Active {
			bases++
			if !c.ExchangeRateToBase.Equal(decimal.NewFromInt(1)) {
				return nil, fmt.Errorf("%w: base currency %s must have rate 1", ErrInvalidRegistry, c.Code)
			}
			r.base = c
		}
		if !c.IsBase && c.ExchangeRateToBase.Sign() <= 0 {
			return nil, fmt.Errorf("%w: currency %s has non-positive rate", ErrInvalidRegistry, c.Code)
		}
		r.byCode[c.Code] = c
	}
	if bases != 1 {
		return nil, fmt.Errorf("%w: expected exactly one active base currency, got %d", ErrInvalidRegistry, bases)
	}
	return r, nil
}

// Lookup resolves a currency by code. Inactive currencies are returned together with ErrCurrencyInactive.
func (r *Registry) Lookup(code string) (Currency, error) {
	if r == nil {
		return Currency{}, ErrCurrencyNotFound
	}
	c, ok := r.byCode[normalizeCode(code)]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %s", ErrCurrencyNotFound, code)
	}
	if !c.Active {
		return c, fmt.Errorf("%w: %s", ErrCurrencyInactive, c.Code)
	}
	return c, nil
}

// Base returns the base currency.
func (r *Registry) Base() Currency {
	if r == nil {
		return Currency{}
	}
	return r.base
}

// Active lists active currencies ordered by code.
func (r *Registry) Active() []Currency {
	if r == nil {
		return nil
	}
	out := make([]Currency, 0, len(r.byCode))
	for _, c := range r.byCode {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
