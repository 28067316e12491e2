package checkout

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/common"
)

// Handler exposes the checkout quote endpoint.
type Handler struct {
	Svc *Service
}

// Quote handles POST /api/v1/checkout/{id}/quote. The body is optional.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	cartID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.BadRequest("id", "invalid cart id", err))
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		common.WriteError(w, err)
		return
	}
	session, _ := common.SessionFrom(r.Context())
	quote, err := h.Svc.Quote(r.Context(), cartID, session, in)
	if err != nil {
		cart.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, quote)
}
