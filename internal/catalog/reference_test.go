package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/catalog/catalogtest"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

func newReference(t *testing.T) *catalog.Reference {
	t.Helper()
	ref, err := catalog.NewReference(catalogtest.Reference(), "RON", "RON", "RO")
	require.NoError(t, err)
	return ref
}

func TestDisplayContextDegrades(t *testing.T) {
	ref := newReference(t)

	pc := ref.DisplayContext(common.Session{CurrencyCode: "EUR", CustomerGroup: "b2b", ShippingCountry: "HU"})
	require.Equal(t, "EUR", pc.Currency.Code)
	require.Equal(t, catalogtest.GroupB2B, pc.Group.ID)
	require.Equal(t, catalogtest.GroupB2C, pc.DefaultGroupID)
	require.Equal(t, "HU", pc.Destination.Shipping)
	require.Equal(t, "RO", pc.Destination.Fallback)

	for _, code := range []string{"GBP", "JPY"} {
		pc = ref.DisplayContext(common.Session{CurrencyCode: code, CustomerGroup: "wholesale"})
		require.Equal(t, "RON", pc.Currency.Code, code)
		require.Equal(t, catalogtest.GroupB2C, pc.Group.ID)
	}
}

func TestCheckoutContextIsStrict(t *testing.T) {
	ref := newReference(t)

	_, err := ref.CheckoutContext(common.Session{CurrencyCode: "GBP"})
	require.ErrorIs(t, err, money.ErrCurrencyInactive)

	_, err = ref.CheckoutContext(common.Session{CurrencyCode: "JPY"})
	require.ErrorIs(t, err, money.ErrCurrencyNotFound)

	_, err = ref.CheckoutContext(common.Session{CustomerGroup: "wholesale"})
	require.ErrorIs(t, err, catalog.ErrUnknownGroup)

	pc, err := ref.CheckoutContext(common.Session{BillingCountry: "BG"})
	require.NoError(t, err)
	require.Equal(t, "RON", pc.Currency.Code)
	require.Empty(t, pc.Destination.Fallback)
	require.Equal(t, "BG", pc.Destination.Billing)
}

func TestNewReferenceChecksBaseCurrency(t *testing.T) {
	_, err := catalog.NewReference(catalogtest.Reference(), "EUR", "", "")
	require.ErrorIs(t, err, money.ErrInvalidRegistry)

	data := catalogtest.Reference()
	data.Groups = []vat.CustomerGroup{{ID: 1, Code: "B2B", Treatment: vat.Exclusive}}
	_, err = catalog.NewReference(data, "RON", "", "")
	require.Error(t, err)
}

type countingSource struct {
	*catalogtest.Memory
	calls int
}

func (c *countingSource) Currencies(ctx context.Context) ([]money.Currency, error) {
	c.calls++
	return c.Memory.Currencies(ctx)
}

func TestReferenceLoaderCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	source := &countingSource{Memory: catalogtest.NewMemory(catalogtest.Reference())}
	loader := &catalog.ReferenceLoader{
		Source:       source,
		Cache:        catalog.NewCache(client, time.Minute),
		BaseCurrency: "RON",
	}
	ctx := context.Background()

	ref, err := loader.Load(ctx)
	require.NoError(t, err)
	eur, err := ref.Currencies.Lookup("EUR")
	require.NoError(t, err)
	require.True(t, eur.ExchangeRateToBase.Equal(decimal.RequireFromString("0.2")))
	require.True(t, mr.Exists("catalog:reference:v1"))

	_, err = loader.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, source.calls)

	require.NoError(t, loader.Invalidate(ctx))
	_, err = loader.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

func TestReferenceLoaderWithoutCache(t *testing.T) {
	source := &countingSource{Memory: catalogtest.NewMemory(catalogtest.Reference())}
	loader := &catalog.ReferenceLoader{Source: source}
	for i := 0; i < 2; i++ {
		_, err := loader.Load(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 2, source.calls)
}

func TestTranslateError(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{fmt.Errorf("resolve: %w", vat.ErrVatRateUndetermined), "VAT_RATE_UNDETERMINED", http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: GBP", money.ErrCurrencyInactive), "CURRENCY_INACTIVE", http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: x", catalog.ErrNotFound), "NOT_FOUND", http.StatusNotFound},
	}
	for _, tc := range cases {
		var appErr *common.AppError
		require.True(t, errors.As(catalog.TranslateError(tc.err), &appErr))
		require.Equal(t, tc.code, appErr.Code)
		require.Equal(t, tc.status, appErr.HTTPStatus)
		require.ErrorIs(t, appErr, tc.err)
	}

	plain := errors.New("boom")
	require.Equal(t, plain, catalog.TranslateError(plain))
}
