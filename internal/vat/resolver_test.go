package vat_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/vat"
)

var (
	b2c = vat.CustomerGroup{ID: 1, Code: "B2C", Default: true, Treatment: vat.Inclusive}
	b2b = vat.CustomerGroup{ID: 2, Code: "B2B", Treatment: vat.Exclusive}
	exp = vat.CustomerGroup{ID: 3, Code: "EXPORT", Treatment: vat.Exempt}
)

func newResolver() vat.Resolver {
	reduced := int64(2)
	return vat.Resolver{Rates: vat.NewTable([]vat.Rate{
		{CountryID: "RO", Rate: decimal.NewFromInt(19)},
		{CountryID: "HU", Rate: decimal.NewFromInt(27)},
		{CountryID: "BG", Rate: decimal.NewFromInt(20)},
		{CountryID: "BG", CustomerGroupID: &reduced, Rate: decimal.NewFromInt(9)},
	})}
}

func TestResolveInclusiveGroup(t *testing.T) {
	regime, err := newResolver().Resolve(vat.Destination{Shipping: "ro"}, b2c)
	require.NoError(t, err)
	require.True(t, regime.Rate.Equal(decimal.NewFromInt(19)))
	require.True(t, regime.Inclusive)
	require.False(t, regime.Exempt)
	require.Equal(t, vat.SourceShipping, regime.Source)
	require.Equal(t, "1.19", regime.Factor().String())
}

func TestResolveIgnoresBillingCountry(t *testing.T) {
	regime, err := newResolver().Resolve(vat.Destination{Shipping: "HU", Billing: "RO"}, b2b)
	require.NoError(t, err)
	require.Equal(t, "HU", regime.Country)
	require.True(t, regime.Rate.Equal(decimal.NewFromInt(27)))
	require.False(t, regime.Inclusive)

	_, err = newResolver().Resolve(vat.Destination{Billing: "RO"}, b2b)
	require.ErrorIs(t, err, vat.ErrVatRateUndetermined)

	regime, err = newResolver().Resolve(vat.Destination{Billing: "RO", Fallback: "HU"}, b2b)
	require.NoError(t, err)
	require.Equal(t, "HU", regime.Country)
	require.Equal(t, vat.SourceFallback, regime.Source)

	_, err = newResolver().Resolve(vat.Destination{Billing: "RO", Fallback: "HU"}.Strict(), b2b)
	require.ErrorIs(t, err, vat.ErrVatRateUndetermined)
}

func TestResolveGroupSpecificRate(t *testing.T) {
	regime, err := newResolver().Resolve(vat.Destination{Shipping: "BG"}, b2b)
	require.NoError(t, err)
	require.True(t, regime.Rate.Equal(decimal.NewFromInt(9)))

	regime, err = newResolver().Resolve(vat.Destination{Shipping: "BG"}, b2c)
	require.NoError(t, err)
	require.True(t, regime.Rate.Equal(decimal.NewFromInt(20)))
}

func TestResolveExemptOutsideVatZone(t *testing.T) {
	regime, err := newResolver().Resolve(vat.Destination{Shipping: "US"}, exp)
	require.NoError(t, err)
	require.True(t, regime.Exempt)
	require.False(t, regime.Inclusive)
	require.True(t, regime.Rate.IsZero())
}

func TestResolveFallbackOnlyWhenExplicit(t *testing.T) {
	_, err := newResolver().Resolve(vat.Destination{}, b2c)
	require.ErrorIs(t, err, vat.ErrVatRateUndetermined)

	dest := vat.Destination{Fallback: "RO"}
	regime, err := newResolver().Resolve(dest, b2c)
	require.NoError(t, err)
	require.Equal(t, vat.SourceFallback, regime.Source)

	_, err = newResolver().Resolve(dest.Strict(), b2c)
	require.ErrorIs(t, err, vat.ErrVatRateUndetermined)
}

func TestResolveMissingRateIsAnError(t *testing.T) {
	_, err := newResolver().Resolve(vat.Destination{Shipping: "US"}, b2c)
	require.ErrorIs(t, err, vat.ErrVatRateUndetermined)

	_, err = newResolver().Resolve(vat.Destination{Shipping: "US", Fallback: "JP"}, b2c)
	require.ErrorIs(t, err, vat.ErrVatRateUndetermined)
}

func TestResolveMissingShippingRateUsesFallback(t *testing.T) {
	dest := vat.Destination{Shipping: "US", Fallback: "RO"}
	regime, err := newResolver().Resolve(dest, b2c)
	require.NoError(t, err)
	require.Equal(t, "RO", regime.Country)
	require.Equal(t, vat.SourceFallback, regime.Source)
	require.True(t, regime.Rate.Equal(decimal.NewFromInt(19)))

	_, err = newResolver().Resolve(dest.Strict(), b2c)
	require.ErrorIs(t, err, vat.ErrVatRateUndetermined)
}

func TestGroupsRequireSingleDefault(t *testing.T) {
	groups, err := vat.NewGroups([]vat.CustomerGroup{b2c, b2b, exp})
	require.NoError(t, err)
	require.Equal(t, "B2C", groups.Default().Code)
	grp, ok := groups.ByCode("b2b")
	require.True(t, ok)
	require.Equal(t, int64(2), grp.ID)

	_, err = vat.NewGroups([]vat.CustomerGroup{b2b})
	require.Error(t, err)
}
