package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

func TestComputeTotals(t *testing.T) {
	lines := []pricing.Breakdown{
		{Quantity: 2, TotalExcl: money.MustParse("20.00", "EUR"), TotalIncl: money.MustParse("23.80", "EUR")},
		{Quantity: 3, TotalExcl: money.MustParse("9.99", "EUR"), TotalIncl: money.MustParse("11.89", "EUR")},
		{Quantity: 0, TotalExcl: money.MustParse("100", "EUR"), TotalIncl: money.MustParse("119", "EUR")},
	}
	totals, err := pricing.Compute("EUR", lines)
	require.NoError(t, err)
	require.Equal(t, "29.99", totals.SubtotalExcl.StringFixed(2))
	require.Equal(t, "35.69", totals.SubtotalIncl.StringFixed(2))
	require.Equal(t, "5.70", totals.VatAmount.StringFixed(2))
	require.Equal(t, 5, totals.ItemCount)
	require.Equal(t, 2, totals.LineCount)
}

func TestComputeRejectsMixedCurrencies(t *testing.T) {
	lines := []pricing.Breakdown{
		{Quantity: 1, TotalExcl: money.MustParse("1", "RON"), TotalIncl: money.MustParse("1.19", "RON")},
	}
	_, err := pricing.Compute("EUR", lines)
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
}
