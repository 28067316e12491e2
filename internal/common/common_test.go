package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/common"
)

type errorResponse struct {
	Error common.ErrorBody `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestIdempotencyRejectsReplayAndReleasesOnServerError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	status := http.StatusOK
	calls := 0
	handler := common.Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(status)
	}))
	do := func(method, path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, do(http.MethodPut, "/carts/a/items", "k1").Code)
	replay := do(http.MethodPut, "/carts/a/items", "k1")
	require.Equal(t, http.StatusConflict, replay.Code)
	require.Equal(t, "IDEMPOTENT_REPLAY", decodeError(t, replay).Code)

	// same key on another route is a different request
	require.Equal(t, http.StatusOK, do(http.MethodPut, "/carts/b/items", "k1").Code)
	// no key means no protection
	require.Equal(t, http.StatusOK, do(http.MethodPut, "/carts/a/items", "").Code)
	require.Equal(t, http.StatusOK, do(http.MethodPut, "/carts/a/items", "").Code)

	status = http.StatusServiceUnavailable
	require.Equal(t, http.StatusServiceUnavailable, do(http.MethodDelete, "/carts/a/items", "k2").Code)
	require.Equal(t, http.StatusServiceUnavailable, do(http.MethodDelete, "/carts/a/items", "k2").Code)
	require.Equal(t, 6, calls)

	mr.FastForward(2 * time.Minute)
	status = http.StatusOK
	require.Equal(t, http.StatusOK, do(http.MethodPut, "/carts/a/items", "k1").Code)
}

type payload struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  *int   `json:"quantity" validate:"required"`
}

func TestDecodeJSONValidates(t *testing.T) {
	var p payload
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"product_id":"7b0fb7e4-3c59-4c1f-9a57-1f4f4b8f0c11","quantity":0}`))
	require.NoError(t, common.DecodeJSON(req, &p))
	require.Equal(t, 0, *p.Quantity)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"product_id":"x"}`))
	err := common.DecodeJSON(req, &payload{})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Equal(t, map[string]any{"fields": map[string]string{"product_id": "uuid", "quantity": "required"}}, appErr.Details)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"product_id":"x","extra":1}`))
	require.ErrorAs(t, common.DecodeJSON(req, &payload{}), &appErr)
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, common.BadRequest("qty", "invalid quantity", errors.New("strconv")))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "BAD_REQUEST", body.Code)
	require.Equal(t, map[string]any{"field": "qty"}, body.Details)

	rr = httptest.NewRecorder()
	common.WriteError(rr, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "INTERNAL", decodeError(t, rr).Code)

	rr = httptest.NewRecorder()
	common.Data(rr, http.StatusCreated, map[string]string{"cart_id": "c1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.JSONEq(t, `{"data":{"cart_id":"c1"}}`, rr.Body.String())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4321"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	require.Equal(t, "203.0.113.9", common.ClientIP(req))

	req.RemoteAddr = "pipe"
	require.Equal(t, "198.51.100.1", common.ClientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "2001:db8::1")
	require.Equal(t, "2001:db8::1", common.ClientIP(req))

	require.Empty(t, common.ClientIP(nil))
}
