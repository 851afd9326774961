package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limit-book/src/models"
)

func TestRateLimiterWindows(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, 500*time.Millisecond)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "clients are limited independently")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, rl.Allow("a"), "a new window resets the counter")
}

func TestRateLimiterMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(NewRateLimiter(1, time.Hour).Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestServiceAvailabilityMaintenance(t *testing.T) {
	sa := NewServiceAvailability(0, true)
	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/v1/orders/1", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orders/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sa.SetMaintenanceMode(false)
	assert.False(t, sa.IsMaintenanceMode())
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orders/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, sa.GetInFlightRequests())
}

func TestServiceAvailabilityOverload(t *testing.T) {
	sa := NewServiceAvailability(1, false)
	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/api/v1/orderbook", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orderbook", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// one request already being served
	sa.inFlight.Add(1)
	defer sa.inFlight.Add(-1)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orderbook", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "overloaded", body.Kind)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
