package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limit-book/src/config"
	"limit-book/src/engine"
	"limit-book/src/handlers"
	"limit-book/src/models"
	"limit-book/src/routes"
)

func setupTestServer(t *testing.T) *fiber.App {
	t.Helper()
	book, err := engine.NewOrderBook(0.05)
	require.NoError(t, err)

	cfg := config.Config{
		RateLimitDisabled:  true,
		RequestLogDisabled: true,
		DefaultDepth:       10,
		MaxDepth:           1000,
		MaxLatencies:       100,
	}
	orderHandler := handlers.NewOrderHandler(engine.NewMatcher(book), handlers.Config{
		DefaultDepth: cfg.DefaultDepth,
		MaxDepth:     cfg.MaxDepth,
		MaxLatencies: cfg.MaxLatencies,
	})

	app := fiber.New()
	routes.SetupRoutes(app, orderHandler, cfg)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func submit(t *testing.T, app *fiber.App, id int64, side string, qty int64, price float64) (int, models.SubmitOrderResponse) {
	t.Helper()
	var resp models.SubmitOrderResponse
	code := doJSON(t, app, http.MethodPost, "/api/v1/orders", models.SubmitOrderRequest{
		ID: id, Side: side, Quantity: qty, Price: price,
	}, &resp)
	return code, resp
}

func TestSubmitOrderAPI(t *testing.T) {
	app := setupTestServer(t)

	code, resp := submit(t, app, 1, "buy", 100, 10.0)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "open", resp.Status)
	assert.Empty(t, resp.Fills)

	code, resp = submit(t, app, 2, "SELL", 250, 10.0)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "partial", resp.Status)
	assert.Equal(t, int64(100), resp.FilledQuantity)
	assert.Equal(t, int64(150), resp.RemainingQuantity)
	require.Len(t, resp.Fills, 1)
	assert.Equal(t, models.FillInfo{Price: 10.0, Quantity: 100, RestingOrderID: 1}, resp.Fills[0])

	code, resp = submit(t, app, 3, "bid", 150, 10.05)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "filled", resp.Status)
	require.Len(t, resp.Fills, 1)
	assert.Equal(t, 10.0, resp.Fills[0].Price)
}

func TestSubmitOrderRejections(t *testing.T) {
	app := setupTestServer(t)
	code, _ := submit(t, app, 1, "buy", 10, 10.0)
	require.Equal(t, http.StatusCreated, code)

	var errResp models.ErrorResponse

	code = doJSON(t, app, http.MethodPost, "/api/v1/orders", models.SubmitOrderRequest{ID: 1, Side: "buy", Quantity: 10, Price: 10.0}, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(engine.ErrDuplicateOrder), errResp.Kind)

	code = doJSON(t, app, http.MethodPost, "/api/v1/orders", models.SubmitOrderRequest{ID: 2, Side: "buy", Quantity: 10, Price: 10.01}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(engine.ErrInvalidPrice), errResp.Kind)

	code = doJSON(t, app, http.MethodPost, "/api/v1/orders", models.SubmitOrderRequest{ID: 2, Side: "hold", Quantity: 10, Price: 10.0}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(engine.ErrInvalidSide), errResp.Kind)

	code = doJSON(t, app, http.MethodPost, "/api/v1/orders", models.SubmitOrderRequest{ID: 2, Side: "sell", Quantity: 0, Price: 10.0}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(engine.ErrInvalidQuantity), errResp.Kind)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAmendCancelAndQueryAPI(t *testing.T) {
	app := setupTestServer(t)
	submit(t, app, 1, "buy", 10, 2.0)
	submit(t, app, 2, "buy", 10, 2.0)

	var amended models.AmendOrderResponse
	code := doJSON(t, app, http.MethodPatch, "/api/v1/orders/1", models.AmendOrderRequest{Quantity: 30}, &amended)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.AmendOrderResponse{OrderID: 1, Quantity: 30, Position: 1}, amended)

	var status models.OrderStatusResponse
	code = doJSON(t, app, http.MethodGet, "/api/v1/orders/2", nil, &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, status.Position)
	assert.Equal(t, "open", status.Status)
	assert.Equal(t, "buy", status.Side)

	var level models.LevelResponse
	code = doJSON(t, app, http.MethodGet, "/api/v1/levels/bid/0", nil, &level)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.LevelResponse{Side: "bid", Level: 0, Price: 2.0, Size: 40}, level)

	// side tokens are case-insensitive, as on submit
	code = doJSON(t, app, http.MethodGet, "/api/v1/levels/BID/0", nil, &level)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.LevelResponse{Side: "bid", Level: 0, Price: 2.0, Size: 40}, level)

	var cancelled models.CancelOrderResponse
	code = doJSON(t, app, http.MethodDelete, "/api/v1/orders/2", nil, &cancelled)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", cancelled.Status)

	var errResp models.ErrorResponse
	code = doJSON(t, app, http.MethodDelete, "/api/v1/orders/2", nil, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(engine.ErrOrderNotResting), errResp.Kind)

	code = doJSON(t, app, http.MethodGet, "/api/v1/orders/2", nil, &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, -1, status.Position)
	assert.Equal(t, "cancelled", status.Status)
	assert.Equal(t, int64(0), status.Leaves)

	code = doJSON(t, app, http.MethodGet, "/api/v1/orders/99", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, code)

	code = doJSON(t, app, http.MethodGet, "/api/v1/levels/ask/0", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(engine.ErrLevelNotFound), errResp.Kind)

	code = doJSON(t, app, http.MethodPatch, "/api/v1/orders/abc", models.AmendOrderRequest{Quantity: 1}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOrderBookAPI(t *testing.T) {
	app := setupTestServer(t)
	submit(t, app, 1, "buy", 10, 9.95)
	submit(t, app, 2, "buy", 5, 9.95)
	submit(t, app, 3, "buy", 7, 9.90)
	submit(t, app, 4, "sell", 4, 10.05)

	var book models.OrderBookResponse
	code := doJSON(t, app, http.MethodGet, "/api/v1/orderbook?depth=1", nil, &book)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.05, book.TickSize)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, models.PriceLevelInfo{Price: 9.95, Quantity: 15, Orders: 2}, book.Bids[0])
	require.Len(t, book.Asks, 1)
	assert.Equal(t, int64(4), book.Asks[0].Quantity)

	code = doJSON(t, app, http.MethodGet, "/api/v1/orderbook", nil, &book)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, book.Bids, 2)
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupTestServer(t)
	submit(t, app, 1, "buy", 10, 1.0)
	submit(t, app, 2, "sell", 4, 1.0)
	submit(t, app, 2, "sell", 4, 1.0)

	var health models.HealthResponse
	code := doJSON(t, app, http.MethodGet, "/health", nil, &health)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, int64(1), health.OpenOrders)

	var m models.MetricsResponse
	code = doJSON(t, app, http.MethodGet, "/metrics", nil, &m)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(3), m.OrdersReceived)
	assert.Equal(t, int64(1), m.OrdersMatched)
	assert.Equal(t, int64(1), m.OrdersRejected)
	assert.Equal(t, int64(1), m.FillsExecuted)
	assert.Equal(t, int64(1), m.OrdersInBook)

	req := httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "book_orders_received_total")
}

func TestRequestIDHeader(t *testing.T) {
	app := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}
