package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockcore/internal/httpx"
	"stockcore/internal/stock"
	"stockcore/internal/stock/stocktest"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, []byte, []byte, ...kafkago.Header) {}

// unreachable redis: cache reads miss, cache writes fail silently, the
// handler falls through to the facade either way
func newTestServer(ms *stocktest.MemStore) *httptest.Server {
	lg := zap.NewNop()
	svc := &stock.Service{
		Ledger:       &stock.Ledger{Store: ms, Log: ms, Lg: lg},
		Reservations: &stock.Manager{Store: ms, Log: ms, Lg: lg},
		Store:        ms,
		Movements:    ms,
		Producer:     nopPublisher{},
		Name:         "inventoryd-test",
		Lg:           lg,
	}
	router := httpx.NewRouter()
	h := &httpx.InventoryHandler{
		Service: svc,
		Redis:   redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		Lg:      lg,
	}
	h.Register(router)
	return httptest.NewServer(router)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(stocktest.New())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetStockUnknownKeyReturnsZero(t *testing.T) {
	srv := newTestServer(stocktest.New())
	defer srv.Close()

	product, warehouse := uuid.NewString(), uuid.NewString()
	resp, err := http.Get(fmt.Sprintf("%s/stock?product_id=%s&warehouse_id=%s", srv.URL, product, warehouse))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rec stock.StockRecord
	decodeBody(t, resp, &rec)
	assert.Equal(t, product, rec.ProductID.String())
	assert.Zero(t, rec.Quantity)
	assert.Zero(t, rec.AvailableQuantity)
}

func TestGetStockMalformedID(t *testing.T) {
	srv := newTestServer(stocktest.New())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stock?product_id=nope&warehouse_id=" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdjustThenGetStock(t *testing.T) {
	ms := stocktest.New()
	srv := newTestServer(ms)
	defer srv.Close()

	product, warehouse := uuid.NewString(), uuid.NewString()
	resp := postJSON(t, srv.URL+"/stock/adjust", map[string]any{
		"product_id":   product,
		"warehouse_id": warehouse,
		"delta":        10,
		"reason":       "intake",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	get, err := http.Get(fmt.Sprintf("%s/stock?product_id=%s&warehouse_id=%s", srv.URL, product, warehouse))
	require.NoError(t, err)
	var rec stock.StockRecord
	decodeBody(t, get, &rec)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 10, rec.AvailableQuantity)
}

func TestAdjustStockMissingFields(t *testing.T) {
	srv := newTestServer(stocktest.New())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/stock/adjust", map[string]any{"delta": 5})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReserveStockPartialFailureBody(t *testing.T) {
	ms := stocktest.New()
	srv := newTestServer(ms)
	defer srv.Close()

	warehouse := uuid.New()
	known, unknown := uuid.New(), uuid.New()
	ms.Seed(known, nil, warehouse, 5)

	resp := postJSON(t, srv.URL+"/reservations", map[string]any{
		"order_id": uuid.NewString(),
		"items": []map[string]any{
			{"product_id": known.String(), "warehouse_id": warehouse.String(), "quantity": 2},
			{"product_id": unknown.String(), "warehouse_id": warehouse.String(), "quantity": 1},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out stock.ReserveOutcome
	decodeBody(t, resp, &out)
	assert.False(t, out.Success)
	assert.Equal(t, []string{unknown.String()}, out.FailedItems)
	assert.NotEmpty(t, out.ReservationID)
}

func TestReserveStockMissingFields(t *testing.T) {
	srv := newTestServer(stocktest.New())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/reservations", map[string]any{"order_id": uuid.NewString()})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReleaseStock(t *testing.T) {
	ms := stocktest.New()
	srv := newTestServer(ms)
	defer srv.Close()

	warehouse, product := uuid.New(), uuid.New()
	stockID := ms.Seed(product, nil, warehouse, 10)
	order := uuid.NewString()

	resp := postJSON(t, srv.URL+"/reservations", map[string]any{
		"order_id": order,
		"items": []map[string]any{
			{"product_id": product.String(), "warehouse_id": warehouse.String(), "quantity": 4},
		},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/reservations/"+order, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	assert.Equal(t, http.StatusOK, del.StatusCode)

	rec, _ := ms.Record(stockID)
	assert.Equal(t, 0, rec.ReservedQuantity)
	assert.Equal(t, 10, rec.AvailableQuantity)
}

func TestReleaseStockMalformedID(t *testing.T) {
	srv := newTestServer(stocktest.New())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/reservations/not-a-uuid", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMovements(t *testing.T) {
	ms := stocktest.New()
	srv := newTestServer(ms)
	defer srv.Close()

	product, warehouse := uuid.New(), uuid.New()
	stockID := ms.Seed(product, nil, warehouse, 10)
	for i := 0; i < 3; i++ {
		_, err := ms.Append(context.Background(), stockID, stock.MovementInbound, i+1, "")
		require.NoError(t, err)
	}

	resp, err := http.Get(fmt.Sprintf("%s/stock/%s/movements?page=1&limit=2", srv.URL, stockID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Movements []stock.Movement `json:"movements"`
		Page      int              `json:"page"`
		Limit     int              `json:"limit"`
	}
	decodeBody(t, resp, &out)
	assert.Len(t, out.Movements, 2)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 2, out.Limit)
	assert.Equal(t, 3, out.Movements[0].Quantity, "most recent first")
}

func TestListMovementsUnknownRecord(t *testing.T) {
	srv := newTestServer(stocktest.New())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stock/" + uuid.NewString() + "/movements")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Scenario walk: intake, two competing holds, release, re-read.
func TestReservationFlow(t *testing.T) {
	ms := stocktest.New()
	srv := newTestServer(ms)
	defer srv.Close()

	product, warehouse := uuid.NewString(), uuid.NewString()
	adjust := postJSON(t, srv.URL+"/stock/adjust", map[string]any{
		"product_id": product, "warehouse_id": warehouse, "delta": 10,
	})
	adjust.Body.Close()
	require.Equal(t, http.StatusOK, adjust.StatusCode)

	o1, o2 := uuid.NewString(), uuid.NewString()
	r1 := postJSON(t, srv.URL+"/reservations", map[string]any{
		"order_id": o1,
		"items":    []map[string]any{{"product_id": product, "warehouse_id": warehouse, "quantity": 7}},
	})
	var out1 stock.ReserveOutcome
	decodeBody(t, r1, &out1)
	assert.True(t, out1.Success)

	r2 := postJSON(t, srv.URL+"/reservations", map[string]any{
		"order_id": o2,
		"items":    []map[string]any{{"product_id": product, "warehouse_id": warehouse, "quantity": 5}},
	})
	var out2 stock.ReserveOutcome
	decodeBody(t, r2, &out2)
	assert.False(t, out2.Success)
	assert.Equal(t, []string{product}, out2.FailedItems)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/reservations/"+o1, nil)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	require.Equal(t, http.StatusOK, del.StatusCode)

	get, err := http.Get(fmt.Sprintf("%s/stock?product_id=%s&warehouse_id=%s", srv.URL, product, warehouse))
	require.NoError(t, err)
	var rec stock.StockRecord
	decodeBody(t, get, &rec)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 0, rec.ReservedQuantity)
	assert.Equal(t, 10, rec.AvailableQuantity)
}
