package cart_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/catalog/catalogtest"
	"github.com/noah-isme/toko-pricing/internal/common"
)

type summaryResponse struct {
	Data cart.SummaryView `json:"data"`
}

type errorResponse struct {
	Error common.ErrorBody `json:"error"`
}

type cartAPI struct {
	t       *testing.T
	router  http.Handler
	catalog *catalogtest.Memory
}

func newCartAPI(t *testing.T) cartAPI {
	t.Helper()
	_, client := newRedis(t)
	mem := catalogtest.NewMemory(catalogtest.Reference())
	ref, err := catalogtest.NewStatic(catalogtest.Reference())
	require.NoError(t, err)
	svc := &cart.Service{
		Store:     cart.RedisStore{Client: client, TTL: time.Hour},
		Catalog:   mem,
		Reference: ref,
	}
	r := chi.NewRouter()
	r.Use(common.SessionMiddleware)
	r.Route("/api/v1/carts", func(r chi.Router) {
		(&cart.Handler{Svc: svc}).Routes(r, common.Idem{R: client, TTL: time.Minute}.Middleware)
	})
	return cartAPI{t: t, router: r, catalog: mem}
}

func (a cartAPI) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a cartAPI) create() string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/carts", "", nil)
	require.Equal(a.t, http.StatusCreated, rec.Code)
	var resp struct {
		Data struct {
			CartID string `json:"cart_id"`
		} `json:"data"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.CartID
}

func summaryOf(t *testing.T, rec *httptest.ResponseRecorder) cart.SummaryView {
	t.Helper()
	require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var resp summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder, status int) common.ErrorBody {
	t.Helper()
	require.Equalf(t, status, rec.Code, "body: %s", rec.Body.String())
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestCartHandlersFlow(t *testing.T) {
	api := newCartAPI(t)
	mug := api.catalog.Put(catalogtest.Simple("Mug", "100", 5))
	parent, variants := catalogtest.Configurable("Shirt", []string{"120", "95"}, []int{2, 8})
	api.catalog.Put(parent)
	for _, v := range variants {
		api.catalog.Put(v)
	}
	id := api.create()
	eur := map[string]string{"X-Currency": "EUR", "X-Ship-Country": "RO"}

	s := summaryOf(t, api.do(http.MethodPut, "/api/v1/carts/"+id+"/items", fmt.Sprintf(`{"product_id":%q,"quantity":2}`, mug.ID), eur))
	require.Len(t, s.Lines, 1)
	require.Equal(t, "EUR", s.CurrencyCode)
	require.Equal(t, "40.00", s.SubtotalExclVat)
	require.Equal(t, "47.60", s.SubtotalInclVat)

	// replaying the same absolute quantity leaves the cart unchanged
	s = summaryOf(t, api.do(http.MethodPut, "/api/v1/carts/"+id+"/items", fmt.Sprintf(`{"product_id":%q,"quantity":2}`, mug.ID), eur))
	require.Equal(t, 2, s.ItemCount)

	s = summaryOf(t, api.do(http.MethodPut, "/api/v1/carts/"+id+"/items", fmt.Sprintf(`{"product_id":%q,"quantity":3}`, variants[1].ID), eur))
	require.Len(t, s.Lines, 2)
	require.Equal(t, 5, s.ItemCount)
	require.Equal(t, 2, s.LineCount)
	variantKey := s.Lines[1].Key
	require.Equal(t, parent.ID.String(), s.Lines[1].ProductID)
	require.Equal(t, "19.00", s.Lines[1].Price.UnitPriceExclVat)

	s = summaryOf(t, api.do(http.MethodPatch, "/api/v1/carts/"+id+"/items/"+variantKey, `{"quantity":1}`, eur))
	require.Equal(t, 3, s.ItemCount)

	s = summaryOf(t, api.do(http.MethodDelete, "/api/v1/carts/"+id+"/items/"+variantKey, "", eur))
	require.Len(t, s.Lines, 1)
	s = summaryOf(t, api.do(http.MethodDelete, "/api/v1/carts/"+id+"/items/"+variantKey, "", eur))
	require.Len(t, s.Lines, 1)

	s = summaryOf(t, api.do(http.MethodGet, "/api/v1/carts/"+id, "", nil))
	require.Equal(t, "RON", s.CurrencyCode)
	require.Equal(t, "238.00", s.SubtotalInclVat)

	s = summaryOf(t, api.do(http.MethodDelete, "/api/v1/carts/"+id+"/items", "", nil))
	require.Empty(t, s.Lines)
	require.Equal(t, "0.00", s.SubtotalInclVat)
}

func TestCartHandlersErrors(t *testing.T) {
	api := newCartAPI(t)
	mug := api.catalog.Put(catalogtest.Simple("Mug", "100", 5))
	parent, variants := catalogtest.Configurable("Shirt", []string{"120"}, []int{2})
	api.catalog.Put(parent)
	api.catalog.Put(variants[0])
	id := api.create()
	items := "/api/v1/carts/" + id + "/items"

	body := errorOf(t, api.do(http.MethodPut, items, fmt.Sprintf(`{"product_id":%q,"quantity":6}`, mug.ID), nil), http.StatusConflict)
	require.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	require.Equal(t, map[string]any{"requested": float64(6), "available": float64(5)}, body.Details)

	body = errorOf(t, api.do(http.MethodPut, items, fmt.Sprintf(`{"product_id":%q,"quantity":0}`, mug.ID), nil), http.StatusBadRequest)
	require.Equal(t, "INVALID_QUANTITY", body.Code)

	body = errorOf(t, api.do(http.MethodPut, items, fmt.Sprintf(`{"product_id":%q,"quantity":1}`, parent.ID), nil), http.StatusUnprocessableEntity)
	require.Equal(t, "VARIANT_REQUIRED", body.Code)

	body = errorOf(t, api.do(http.MethodPut, items, `{"product_id":"nope","quantity":1}`, nil), http.StatusBadRequest)
	require.Equal(t, "BAD_REQUEST", body.Code)
	require.Equal(t, map[string]any{"fields": map[string]any{"product_id": "uuid"}}, body.Details)

	body = errorOf(t, api.do(http.MethodPut, items, fmt.Sprintf(`{"product_id":%q}`, mug.ID), nil), http.StatusBadRequest)
	require.Equal(t, "BAD_REQUEST", body.Code)

	body = errorOf(t, api.do(http.MethodPatch, items+"/"+mug.ID.String(), `{"quantity":1}`, nil), http.StatusNotFound)
	require.Equal(t, "NOT_FOUND", body.Code)

	body = errorOf(t, api.do(http.MethodGet, "/api/v1/carts/7b0fb7e4-3c59-4c1f-9a57-1f4f4b8f0c11", "", nil), http.StatusNotFound)
	require.Equal(t, "NOT_FOUND", body.Code)

	body = errorOf(t, api.do(http.MethodGet, "/api/v1/carts/not-a-uuid", "", nil), http.StatusBadRequest)
	require.Equal(t, "BAD_REQUEST", body.Code)
}

func TestCartMutationsHonourIdempotencyKey(t *testing.T) {
	api := newCartAPI(t)
	mug := api.catalog.Put(catalogtest.Simple("Mug", "100", 5))
	id := api.create()
	headers := map[string]string{"Idempotency-Key": "abc"}
	payload := fmt.Sprintf(`{"product_id":%q,"quantity":1}`, mug.ID)

	summaryOf(t, api.do(http.MethodPut, "/api/v1/carts/"+id+"/items", payload, headers))
	body := errorOf(t, api.do(http.MethodPut, "/api/v1/carts/"+id+"/items", payload, headers), http.StatusConflict)
	require.Equal(t, "IDEMPOTENT_REPLAY", body.Code)
}

func TestCartViewSurfacesStockWarning(t *testing.T) {
	api := newCartAPI(t)
	mug := api.catalog.Put(catalogtest.Simple("Mug", "100", 5))
	id := api.create()
	summaryOf(t, api.do(http.MethodPut, "/api/v1/carts/"+id+"/items", fmt.Sprintf(`{"product_id":%q,"quantity":4}`, mug.ID), nil))

	mug.StockQuantity = 1
	api.catalog.Put(mug)
	s := summaryOf(t, api.do(http.MethodGet, "/api/v1/carts/"+id, "", nil))
	require.True(t, s.Blocking)
	require.True(t, s.Lines[0].Blocking)
	require.Equal(t, &cart.StockWarning{Requested: 4, Available: 1}, s.Lines[0].StockWarning)
	require.Equal(t, 4, s.ItemCount)
}
