package pricefeed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/facebookgo/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheStampsObservation(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(time.Hour)
	cache := NewMemory(clk)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "BTC")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "btc", decimal.NewFromInt(45000)))
	q, ok, err := cache.Get(ctx, "BTC")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(45000)))
	assert.True(t, q.ObservedAt.Equal(clk.Now()))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	clk := clock.NewMock()
	clk.Add(48 * time.Hour)
	cache := NewRedis(client, clk)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "ETH")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "eth", decimal.RequireFromString("3000.25")))
	q, ok, err := cache.Get(ctx, "ETH")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3000.25", q.Rate.String())
	assert.True(t, q.ObservedAt.Equal(clk.Now()))
}

func TestParseRates(t *testing.T) {
	rates, err := ParseRates("BTC=45000, eth=3000,USDC=1")
	require.NoError(t, err)
	assert.Len(t, rates, 3)
	assert.True(t, rates["ETH"].Equal(decimal.NewFromInt(3000)))

	_, err = ParseRates("BTC")
	assert.Error(t, err)
	_, err = ParseRates("BTC=-1")
	assert.Error(t, err)
}

func TestHandlerSetAndGet(t *testing.T) {
	cache := NewMemory(nil)
	h := NewHandler(cache)
	app := fiber.New()
	app.Put("/rates/:currency", h.Set)
	app.Get("/rates/:currency", h.Get)

	req := httptest.NewRequest(fiber.MethodPut, "/rates/btc", strings.NewReader(`{"rate":"45000"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/rates/BTC", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/rates/DOGE", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	bad := httptest.NewRequest(fiber.MethodPut, "/rates/btc", strings.NewReader(`{"rate":"abc"}`))
	bad.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(bad)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
