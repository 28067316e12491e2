package cart

import (
	"errors"
	"net/http"

	"github.com/hashicorp/go-multierror"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
)

// TranslateError maps cart errors onto AppErrors and defers the rest to catalog.TranslateError.
func TranslateError(err error) error {
	if err == nil || common.IsAppError(err) {
		return err
	}
	var appErr *common.AppError
	switch {
	case errors.Is(err, ErrNotFound):
		appErr = common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err)
	case errors.Is(err, ErrLineNotFound):
		appErr = common.NewAppError("NOT_FOUND", "cart line not found", http.StatusNotFound, err)
	case errors.Is(err, ErrInvalidKey):
		appErr = common.NewAppError("BAD_REQUEST", "invalid line key", http.StatusBadRequest, err)
	case errors.Is(err, ErrEmptyCart):
		appErr = common.NewAppError("EMPTY_CART", "cart is empty", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrVariantRequired):
		appErr = common.NewAppError("VARIANT_REQUIRED", "select an available option", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrInsufficientStock):
		appErr = common.NewAppError("INSUFFICIENT_STOCK", "reduce quantity", http.StatusConflict, err)
		var stock *StockError
		if errors.As(err, &stock) {
			appErr.Details = map[string]any{"requested": stock.Requested, "available": stock.Available}
		}
	default:
		translated := catalog.TranslateError(err)
		if !errors.As(translated, &appErr) {
			return err
		}
	}
	var merr *multierror.Error
	if errors.As(err, &merr) && len(merr.Errors) > 1 {
		problems := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			problems = append(problems, e.Error())
		}
		appErr.Details = map[string]any{"problems": problems}
	}
	return appErr
}

// WriteError renders cart and pricing errors with the standard envelope.
func WriteError(w http.ResponseWriter, err error) {
	common.WriteError(w, TranslateError(err))
}

// ResultLabel turns an error into a low-cardinality metric label.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *common.AppError
	if errors.As(TranslateError(err), &appErr) {
		return appErr.Code
	}
	return "error"
}
