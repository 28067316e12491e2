package catalog

import (
	"errors"
	"net/http"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

type errorMapping struct {
	target  error
	code    string
	message string
	status  int
}

var pricingErrors = []errorMapping{
	{ErrNotFound, "NOT_FOUND", "product not found", http.StatusNotFound},
	{ErrUnknownGroup, "BAD_REQUEST", "unknown customer group", http.StatusBadRequest},
	{money.ErrCurrencyInactive, "CURRENCY_INACTIVE", "currency is not active", http.StatusUnprocessableEntity},
	{money.ErrCurrencyNotFound, "CURRENCY_NOT_FOUND", "currency not found", http.StatusUnprocessableEntity},
	{vat.ErrVatRateUndetermined, "VAT_RATE_UNDETERMINED", "vat rate could not be determined for the destination", http.StatusUnprocessableEntity},
	{pricing.ErrInvalidQuantity, "INVALID_QUANTITY", "quantity must be at least 1", http.StatusBadRequest},
	{pricing.ErrProductInactive, "PRODUCT_INACTIVE", "product is not available", http.StatusUnprocessableEntity},
	{pricing.ErrNoActiveVariants, "NO_ACTIVE_VARIANTS", "product has no active variants", http.StatusUnprocessableEntity},
	{pricing.ErrVariantMismatch, "BAD_REQUEST", "variant does not belong to product", http.StatusBadRequest},
}

// TranslateError maps pricing domain errors onto AppErrors. Unknown errors pass through unchanged.
func TranslateError(err error) error {
	if err == nil || common.IsAppError(err) {
		return err
	}
	for _, m := range pricingErrors {
		if errors.Is(err, m.target) {
			return common.NewAppError(m.code, m.message, m.status, err)
		}
	}
	return err
}

// WriteError renders a pricing error with the standard envelope.
func WriteError(w http.ResponseWriter, err error) {
	common.WriteError(w, TranslateError(err))
}
