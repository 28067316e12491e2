package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// Handler wires cart services to HTTP. Mutations answer with the refreshed summary.
type Handler struct {
	Svc *Service
}

type setItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  *int   `json:"quantity" validate:"required"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// Routes mounts the cart endpoints. Mutations pass through idem when it is set.
func (h *Handler) Routes(r chi.Router, idem func(http.Handler) http.Handler) {
	if idem == nil {
		idem = func(next http.Handler) http.Handler { return next }
	}
	r.With(idem).Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.With(idem).Put("/{id}/items", h.SetItem)
	r.With(idem).Patch("/{id}/items/{key}", h.UpdateItem)
	r.With(idem).Delete("/{id}/items/{key}", h.RemoveItem)
	r.With(idem).Delete("/{id}/items", h.Clear)
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Create(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{"cart_id": c.ID.String()})
}

// Get handles GET /api/v1/carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	h.respondSummary(w, r, cartID, http.StatusOK)
}

// SetItem handles PUT /api/v1/carts/{id}/items with an absolute quantity.
func (h *Handler) SetItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload setItemRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	productID := uuid.MustParse(payload.ProductID)
	if _, _, err := h.Svc.SetItem(r.Context(), cartID, productID, *payload.Quantity); err != nil {
		WriteError(w, err)
		return
	}
	h.respondSummary(w, r, cartID, http.StatusOK)
}

// UpdateItem handles PATCH /api/v1/carts/{id}/items/{key}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	key, err := ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var payload updateItemRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	if _, err := h.Svc.UpdateItem(r.Context(), cartID, key, *payload.Quantity); err != nil {
		WriteError(w, err)
		return
	}
	h.respondSummary(w, r, cartID, http.StatusOK)
}

// RemoveItem handles DELETE /api/v1/carts/{id}/items/{key}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	key, err := ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if _, err := h.Svc.RemoveItem(r.Context(), cartID, key); err != nil {
		WriteError(w, err)
		return
	}
	h.respondSummary(w, r, cartID, http.StatusOK)
}

// Clear handles DELETE /api/v1/carts/{id}/items.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	if _, err := h.Svc.Clear(r.Context(), cartID); err != nil {
		WriteError(w, err)
		return
	}
	h.respondSummary(w, r, cartID, http.StatusOK)
}

func (h *Handler) respondSummary(w http.ResponseWriter, r *http.Request, cartID uuid.UUID, status int) {
	session, _ := common.SessionFrom(r.Context())
	summary, err := h.Svc.Summary(r.Context(), cartID, session)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, status, summary)
}

func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.BadRequest("id", "invalid cart id", err))
		return uuid.Nil, false
	}
	return id, true
}
