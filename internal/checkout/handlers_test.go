package checkout_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/catalog/catalogtest"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/common"
)

type quoteResponse struct {
	Data struct {
		QuoteID    string           `json:"quote_id"`
		CartID     string           `json:"cart_id"`
		VatCountry string           `json:"vat_country"`
		VatSource  string           `json:"vat_source"`
		Summary    cart.SummaryView `json:"summary"`
	} `json:"data"`
}

type errorResponse struct {
	Error common.ErrorBody `json:"error"`
}

type fixture struct {
	router  http.Handler
	carts   *cart.Service
	catalog *catalogtest.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mem := catalogtest.NewMemory(catalogtest.Reference())
	ref, err := catalogtest.NewStatic(catalogtest.Reference())
	require.NoError(t, err)
	carts := &cart.Service{Store: cart.RedisStore{Client: client}, Catalog: mem, Reference: ref}
	h := &checkout.Handler{Svc: &checkout.Service{
		Carts: carts,
		Now:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}}
	r := chi.NewRouter()
	r.Use(common.SessionMiddleware)
	r.Post("/api/v1/checkout/{id}/quote", h.Quote)
	return fixture{router: r, carts: carts, catalog: mem}
}

func (f fixture) cartWith(t *testing.T, qty int, products ...string) (uuid.UUID, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Create(ctx)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(products))
	for _, price := range products {
		p := f.catalog.Put(catalogtest.Simple("item "+price, price, 10))
		_, _, err := f.carts.SetItem(ctx, c.ID, p.ID, qty)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return c.ID, ids
}

func (f fixture) post(t *testing.T, cartID uuid.UUID, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout/"+cartID.String()+"/quote", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout/"+cartID.String()+"/quote", strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder, status int) common.ErrorBody {
	t.Helper()
	require.Equalf(t, status, rec.Code, "body: %s", rec.Body.String())
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestQuoteRequiresDestination(t *testing.T) {
	f := newFixture(t)
	cartID, _ := f.cartWith(t, 1, "100")

	body := errorOf(t, f.post(t, cartID, "", nil), http.StatusUnprocessableEntity)
	require.Equal(t, "VAT_RATE_UNDETERMINED", body.Code)

	rec := f.post(t, cartID, `{"shipping_country":"hu"}`, map[string]string{"X-Bill-Country": "RO"})
	require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "HU", resp.Data.VatCountry)
	require.Equal(t, "shipping", resp.Data.VatSource)
	require.Equal(t, cartID.String(), resp.Data.CartID)
	require.Equal(t, "27.00", resp.Data.Summary.VatRate)
	require.Equal(t, "127.00", resp.Data.Summary.SubtotalInclVat)
	require.NotEmpty(t, resp.Data.QuoteID)

	// billing alone never decides goods VAT
	body = errorOf(t, f.post(t, cartID, `{"billing_country":"ro"}`, nil), http.StatusUnprocessableEntity)
	require.Equal(t, "VAT_RATE_UNDETERMINED", body.Code)

	body = errorOf(t, f.post(t, cartID, "", map[string]string{"X-Ship-Country": "US"}), http.StatusUnprocessableEntity)
	require.Equal(t, "VAT_RATE_UNDETERMINED", body.Code)
}

func TestQuoteAcceptsEmptyChunkedBody(t *testing.T) {
	f := newFixture(t)
	cartID, _ := f.cartWith(t, 1, "100")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/"+cartID.String()+"/quote", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("X-Ship-Country", "RO")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
}

func TestQuoteNeverDegradesCurrency(t *testing.T) {
	f := newFixture(t)
	cartID, _ := f.cartWith(t, 1, "100")

	body := errorOf(t, f.post(t, cartID, "", map[string]string{"X-Currency": "GBP", "X-Ship-Country": "RO"}), http.StatusUnprocessableEntity)
	require.Equal(t, "CURRENCY_INACTIVE", body.Code)

	body = errorOf(t, f.post(t, cartID, "", map[string]string{"X-Currency": "JPY", "X-Ship-Country": "RO"}), http.StatusUnprocessableEntity)
	require.Equal(t, "CURRENCY_NOT_FOUND", body.Code)
}

func TestQuoteFailsOnStockAndAvailability(t *testing.T) {
	f := newFixture(t)
	cartID, ids := f.cartWith(t, 5, "100", "20")
	ctx := context.Background()

	first, err := f.catalog.Product(ctx, ids[0])
	require.NoError(t, err)
	first.StockQuantity = 2
	f.catalog.Put(first)
	f.catalog.Delete(ids[1])

	body := errorOf(t, f.post(t, cartID, "", map[string]string{"X-Ship-Country": "RO"}), http.StatusConflict)
	require.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	details, ok := body.Details.(map[string]any)
	require.True(t, ok)
	require.Len(t, details["problems"], 2)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	cartID, _ := f.cartWith(t, 1, "100")

	body := errorOf(t, f.post(t, cartID, `{"shipping_country":"Romania"}`, nil), http.StatusBadRequest)
	require.Equal(t, "BAD_REQUEST", body.Code)

	body = errorOf(t, f.post(t, uuid.New(), "", map[string]string{"X-Ship-Country": "RO"}), http.StatusNotFound)
	require.Equal(t, "NOT_FOUND", body.Code)

	empty, err := f.carts.Create(context.Background())
	require.NoError(t, err)
	body = errorOf(t, f.post(t, empty.ID, "", map[string]string{"X-Ship-Country": "RO"}), http.StatusUnprocessableEntity)
	require.Equal(t, "EMPTY_CART", body.Code)
}
