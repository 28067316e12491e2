package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// Handler exposes public catalog pricing endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Price handles GET /api/v1/products/{id}/price?qty=&variant=.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.BadRequest("id", "invalid product id", err))
		return
	}
	req := PriceRequest{ProductID: productID, Quantity: 1}
	if raw := strings.TrimSpace(r.URL.Query().Get("qty")); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			common.WriteError(w, common.BadRequest("qty", "qty must be an integer", err))
			return
		}
		req.Quantity = qty
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("variant")); raw != "" {
		variantID, err := uuid.Parse(raw)
		if err != nil {
			common.WriteError(w, common.BadRequest("variant", "invalid variant id", err))
			return
		}
		req.VariantID = &variantID
	}
	req.Session, _ = common.SessionFrom(r.Context())

	breakdown, err := h.service.Price(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, breakdown)
}
