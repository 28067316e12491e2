package money

import "fmt"

// Converter expresses base-currency amounts in display currencies and back.
type Converter struct {
	Base Currency
}

// NewConverter builds a converter around the registry base currency.
func NewConverter(r *Registry) Converter {
	return Converter{Base: r.Base()}
}

// ToDisplay converts a base amount into target, rounding half-up to the target's places.
func (c Converter) ToDisplay(amount Money, target Currency) (Money, error) {
	if !target.Active {
		return Money{}, fmt.Errorf("%w: %s", ErrCurrencyInactive, target.Code)
	}
	if amount.Currency != c.baseCode() {
		return Money{}, fmt.Errorf("%w: expected %s amount, got %s", ErrCurrencyMismatch, c.baseCode(), amount.Currency)
	}
	if target.IsBase {
		return Money{Amount: amount.Amount.Round(target.DecimalPlaces), Currency: target.Code}, nil
	}
	converted := amount.Amount.Mul(target.ExchangeRateToBase).Round(target.DecimalPlaces)
	return Money{Amount: converted, Currency: target.Code}, nil
}

// ToBase converts an amount expressed in source back into the base currency.
func (c Converter) ToBase(amount Money, source Currency) (Money, error) {
	if amount.Currency != source.Code {
		return Money{}, fmt.Errorf("%w: amount in %s, source %s", ErrCurrencyMismatch, amount.Currency, source.Code)
	}
	places := c.basePlaces()
	if source.IsBase {
		return Money{Amount: amount.Amount.Round(places), Currency: c.baseCode()}, nil
	}
	if source.ExchangeRateToBase.Sign() <= 0 {
		return Money{}, fmt.Errorf("%w: currency %s has no usable rate", ErrInvalidRegistry, source.Code)
	}
	back := amount.Amount.Div(source.ExchangeRateToBase).Round(places)
	return Money{Amount: back, Currency: c.baseCode()}, nil
}

func (c Converter) baseCode() string {
	if c.Base.Code == "" {
		return BaseCode
	}
	return c.Base.Code
}

func (c Converter) basePlaces() int32 {
	if c.Base.Code == "" {
		return 2
	}
	return c.Base.DecimalPlaces
}
