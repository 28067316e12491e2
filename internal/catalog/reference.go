package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

// ErrUnknownGroup is returned at checkout for a customer group code that does not exist.
var ErrUnknownGroup = errors.New("unknown customer group")

const referenceCacheKey = "reference:v1"

// ReferenceData is the admin-managed pricing configuration: currencies, customer groups and VAT rates.
type ReferenceData struct {
	Currencies []money.Currency    `json:"currencies"`
	Groups     []vat.CustomerGroup `json:"customer_groups"`
	Rates      []vat.Rate          `json:"vat_rates"`
}

// Reference is the validated, indexed form of ReferenceData.
type Reference struct {
	Currencies      *money.Registry
	Groups          *vat.Groups
	Rates           *vat.Table
	DefaultCurrency string
	FallbackCountry string
}

// NewReference validates reference data. baseCode, when set, must name the registry's base currency.
func NewReference(data ReferenceData, baseCode, defaultCurrency, fallbackCountry string) (*Reference, error) {
	registry, err := money.NewRegistry(data.Currencies)
	if err != nil {
		return nil, err
	}
	if baseCode != "" && !strings.EqualFold(registry.Base().Code, baseCode) {
		return nil, fmt.Errorf("%w: base currency is %s, configured %s", money.ErrInvalidRegistry, registry.Base().Code, baseCode)
	}
	groups, err := vat.NewGroups(data.Groups)
	if err != nil {
		return nil, err
	}
	return &Reference{
		Currencies:      registry,
		Groups:          groups,
		Rates:           vat.NewTable(data.Rates),
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(defaultCurrency)),
		FallbackCountry: strings.ToUpper(strings.TrimSpace(fallbackCountry)),
	}, nil
}

// Resolver builds the product price resolver over this reference data.
func (r *Reference) Resolver() pricing.Resolver {
	return pricing.Resolver{
		Converter: money.NewConverter(r.Currencies),
		VAT:       vat.Resolver{Rates: r.Rates},
	}
}

// DisplayContext builds the context for browsing and cart views. It never fails:
// an unusable currency degrades to the base currency, an unknown group to the
// default group, and VAT uses the configured country when the shipping country
// is unknown or has no rate.
func (r *Reference) DisplayContext(s common.Session) pricing.Context {
	code := s.CurrencyCode
	if code == "" {
		code = r.DefaultCurrency
	}
	currency := r.Currencies.Base()
	if code != "" {
		c, err := r.Currencies.Lookup(code)
		switch {
		case err == nil:
			currency = c
		case errors.Is(err, money.ErrCurrencyInactive):
			obs.ObserveCurrencyFallback("inactive")
		default:
			obs.ObserveCurrencyFallback("not_found")
		}
	}
	group, ok := r.Groups.ByCode(s.CustomerGroup)
	if !ok {
		group = r.Groups.Default()
	}
	return pricing.Context{
		Currency:       currency,
		Group:          group,
		DefaultGroupID: r.Groups.Default().ID,
		Destination: vat.Destination{
			Shipping: s.ShippingCountry,
			Billing:  s.BillingCountry,
			Fallback: r.FallbackCountry,
		},
	}
}

// ObserveVatFallback counts a display price whose VAT came from the fallback country.
func ObserveVatFallback(pc pricing.Context, regime vat.Regime) {
	if regime.Source != vat.SourceFallback {
		return
	}
	if strings.TrimSpace(pc.Destination.Shipping) == "" {
		obs.ObserveVatFallback("no_destination")
		return
	}
	obs.ObserveVatFallback("no_rate")
}

// CheckoutContext builds the strict context used to finalize an order. Currency
// and group problems are returned instead of degraded, and VAT needs a real address.
func (r *Reference) CheckoutContext(s common.Session) (pricing.Context, error) {
	code := s.CurrencyCode
	if code == "" {
		code = r.DefaultCurrency
	}
	currency := r.Currencies.Base()
	if code != "" {
		c, err := r.Currencies.Lookup(code)
		if err != nil {
			return pricing.Context{}, err
		}
		currency = c
	}
	group := r.Groups.Default()
	if s.CustomerGroup != "" {
		g, ok := r.Groups.ByCode(s.CustomerGroup)
		if !ok {
			return pricing.Context{}, fmt.Errorf("%w: %s", ErrUnknownGroup, s.CustomerGroup)
		}
		group = g
	}
	return pricing.Context{
		Currency:       currency,
		Group:          group,
		DefaultGroupID: r.Groups.Default().ID,
		Destination: vat.Destination{
			Shipping: s.ShippingCountry,
			Billing:  s.BillingCountry,
		}.Strict(),
	}, nil
}

type referenceSource interface {
	Currencies(ctx context.Context) ([]money.Currency, error)
	CustomerGroups(ctx context.Context) ([]vat.CustomerGroup, error)
	VatRates(ctx context.Context) ([]vat.Rate, error)
}

// ReferenceLoader reads reference data through the Redis cache, falling back to Postgres.
type ReferenceLoader struct {
	Source          referenceSource
	Cache           *Cache
	BaseCurrency    string
	DefaultCurrency string
	FallbackCountry string
	Logger          zerolog.Logger
}

// Load returns validated reference data.
func (l *ReferenceLoader) Load(ctx context.Context) (*Reference, error) {
	var data ReferenceData
	hit, err := l.Cache.GetJSON(ctx, referenceCacheKey, &data)
	if err != nil {
		l.Logger.Warn().Err(err).Msg("reference cache read failed")
	}
	if hit {
		obs.ObserveReferenceCache("hit")
	} else {
		obs.ObserveReferenceCache("miss")
		if data, err = l.fetch(ctx); err != nil {
			return nil, err
		}
		if err := l.Cache.SetJSON(ctx, referenceCacheKey, data); err != nil {
			l.Logger.Warn().Err(err).Msg("reference cache write failed")
		}
	}
	return NewReference(data, l.BaseCurrency, l.DefaultCurrency, l.FallbackCountry)
}

// Invalidate forces the next Load to read Postgres.
func (l *ReferenceLoader) Invalidate(ctx context.Context) error {
	return l.Cache.Delete(ctx, referenceCacheKey)
}

func (l *ReferenceLoader) fetch(ctx context.Context) (ReferenceData, error) {
	if l.Source == nil {
		return ReferenceData{}, errors.New("reference source not configured")
	}
	currencies, err := l.Source.Currencies(ctx)
	if err != nil {
		return ReferenceData{}, err
	}
	groups, err := l.Source.CustomerGroups(ctx)
	if err != nil {
		return ReferenceData{}, err
	}
	rates, err := l.Source.VatRates(ctx)
	if err != nil {
		return ReferenceData{}, err
	}
	return ReferenceData{Currencies: currencies, Groups: groups, Rates: rates}, nil
}
