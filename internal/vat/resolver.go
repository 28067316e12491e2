package vat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrVatRateUndetermined means no destination could be established or no rate exists for it.
var ErrVatRateUndetermined = errors.New("vat rate undetermined")

// Source tells which input decided the VAT country.
type Source string

const (
	SourceShipping Source = "shipping"
	SourceFallback Source = "fallback"
	SourceExempt   Source = "exempt"
)

// Destination carries the candidate countries for goods VAT. Empty strings mean unknown.
// Billing is informational only: goods VAT follows the shipping address.
type Destination struct {
	Shipping string
	Billing  string
	Fallback string
}

// country picks the shipping country, then the explicit fallback.
func (d Destination) country() (string, Source, bool) {
	if c := normalizeCountry(d.Shipping); c != "" {
		return c, SourceShipping, true
	}
	if c := normalizeCountry(d.Fallback); c != "" {
		return c, SourceFallback, true
	}
	return "", "", false
}

// Strict drops the fallback so only the shipping address can decide VAT.
func (d Destination) Strict() Destination {
	d.Fallback = ""
	return d
}

// Regime is the resolved VAT treatment for one pricing request.
type Regime struct {
	Rate      decimal.Decimal
	Inclusive bool
	Exempt    bool
	Country   string
	Source    Source
}

// Factor returns 1 + rate/100.
func (r Regime) Factor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(r.Rate.Div(decimal.NewFromInt(100)))
}

// RateLookup returns the VAT percentage for a country and customer group.
type RateLookup interface {
	Rate(country string, groupID int64) (decimal.Decimal, bool)
}

// Resolver determines the VAT regime from destination and customer group.
type Resolver struct {
	Rates RateLookup
}

// Resolve returns the rate and display mode. It never defaults silently: the
// fallback country is used only when the destination carries one, either because
// no shipping country is known or because it has no rate row.
func (r Resolver) Resolve(dest Destination, group CustomerGroup) (Regime, error) {
	if group.Treatment == Exempt {
		country, _, _ := dest.country()
		return Regime{Rate: decimal.Zero, Exempt: true, Country: country, Source: SourceExempt}, nil
	}
	country, source, ok := dest.country()
	if !ok {
		return Regime{}, fmt.Errorf("%w: no destination country", ErrVatRateUndetermined)
	}
	if r.Rates == nil {
		return Regime{}, fmt.Errorf("%w: no rate table", ErrVatRateUndetermined)
	}
	rate, ok := r.Rates.Rate(country, group.ID)
	if !ok && source == SourceShipping {
		if fallback := normalizeCountry(dest.Fallback); fallback != "" && fallback != country {
			country, source = fallback, SourceFallback
			rate, ok = r.Rates.Rate(country, group.ID)
		}
	}
	if !ok {
		return Regime{}, fmt.Errorf("%w: no rate for %s", ErrVatRateUndetermined, country)
	}
	return Regime{
		Rate:      rate,
		Inclusive: group.Treatment == Inclusive,
		Country:   country,
		Source:    source,
	}, nil
}

func normalizeCountry(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
