package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/paycore/internal/config"
	"github.com/congo-pay/paycore/internal/logging"
	"github.com/congo-pay/paycore/internal/middleware"
)

const collaboratorToken = "feed-secret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(collaboratorToken), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Config{
		AppName:               "paycore-test",
		AppEnv:                "test",
		IdempotencyTTL:        time.Hour,
		RateMaxAge:            5 * time.Minute,
		CardHomeCountry:       "US",
		SeedRates:             "BTC=45000,ETH=3000",
		CollaboratorTokenHash: string(hash),
	}
	app := fiber.New()
	_, err = Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()})
	require.NoError(t, err)
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func TestProcessRequiresIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	resp, _ := send(t, app, http.MethodPost, "/api/v1/payments/process", `{"amount":10000,"currency":"usd","method":"card"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	_, err := Setup(fiber.New(), Deps{Cfg: config.Config{AppEnv: "production"}, Logger: logging.Discard()})
	assert.Error(t, err)
}

func TestHealthReportsMemoryBackends(t *testing.T) {
	app := newTestApp(t)
	resp, body := send(t, app, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	status, _ := body["status"].(map[string]any)
	assert.Equal(t, "memory", status["postgres"])
	assert.Equal(t, "memory", status["redis"])
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestProcessIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	headers := map[string]string{"Idempotency-Key": "order-1"}
	body := `{"amount":10000,"currency":"USD","method":"card"}`

	first, firstBody := send(t, app, http.MethodPost, "/api/v1/payments/process", body, headers)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	second, secondBody := send(t, app, http.MethodPost, "/api/v1/payments/process", body, headers)
	require.Equal(t, http.StatusCreated, second.StatusCode)

	assert.Equal(t, "true", second.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, firstBody["payment_intent_id"], secondBody["payment_intent_id"])
}

func TestCryptoFlowWithSeededRates(t *testing.T) {
	app := newTestApp(t)
	auth := map[string]string{fiber.HeaderAuthorization: "Bearer " + collaboratorToken}

	resp, _ := send(t, app, http.MethodPost, "/api/v1/wallets/btc",
		`{"network":"bitcoin","address":"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = send(t, app, http.MethodPost, "/api/v1/wallets/btc",
		`{"network":"bitcoin","address":"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"}`, auth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	resp, body := send(t, app, http.MethodPost, "/api/v1/payments/process", `{
		"amount": 4500, "currency": "usd", "method": "crypto",
		"crypto": {"currency": "btc", "network": "bitcoin", "wallet_address": "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
			"amount_crypto": "0.001", "exchange_rate": "45000", "expires_at": "`+expires+`"}}`,
		map[string]string{"Idempotency-Key": "crypto-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	hash, _ := body["transaction_hash"].(string)
	require.Len(t, hash, 66)

	resp, _ = send(t, app, http.MethodPost, "/api/v1/payments/crypto/"+hash+"/confirmations", `{"observed":6}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, body = send(t, app, http.MethodPost, "/api/v1/payments/crypto/"+hash+"/confirmations", `{"observed":6}`, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status, _ := body["status"].(map[string]any)
	assert.Equal(t, "confirmed", status["state"])

	resp, body = send(t, app, http.MethodGet, "/api/v1/wallets/btc", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.001", body["balance"])
}

func TestRatesRoutes(t *testing.T) {
	app := newTestApp(t)
	resp, _ := send(t, app, http.MethodGet, "/api/v1/rates/btc", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPut, "/api/v1/rates/sol", `{"rate":"150"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMetricsExposesPaymentCounters(t *testing.T) {
	app := newTestApp(t)
	resp, _ := send(t, app, http.MethodPost, "/api/v1/payments/process", `{"amount":10000,"currency":"usd","method":"card"}`,
		map[string]string{"Idempotency-Key": "metrics-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mresp, err := app.Test(req)
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, _ := io.ReadAll(mresp.Body)
	assert.Contains(t, string(raw), "paycore_events_total")
}
