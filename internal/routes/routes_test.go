package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/estatex/wallet-ledger/internal/auth"
	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/metrics"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	jwt    *auth.JWTService
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	useCases := usecases.NewUseCases(repositories.NewMemoryRepositories(), usecases.Options{
		Ledger:  config.LedgerConfig{DefaultCurrency: "USD"},
		Logger:  zap.NewNop(),
		Metrics: metrics.New(registry),
	})
	jwtService := auth.NewJWTService("test-secret", "wallet-ledger")

	router := gin.New()
	SetupRoutes(router, useCases, jwtService, Options{Logger: zap.NewNop(), Gatherer: registry})

	return &apiClient{t: t, router: router, jwt: jwtService}
}

func (a *apiClient) do(method, path, userID, role string, body interface{}, headers ...string) (int, apiResponse) {
	a.t.Helper()

	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := a.jwt.GenerateToken(userID, role)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var response apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	}
	return w.Code, response
}

func TestRoutes_WalletLifecycle(t *testing.T) {
	api := newAPI(t)

	status, _ := api.do(http.MethodPost, "/api/v1/wallets", "alice", auth.RoleUser, nil)
	require.Equal(t, http.StatusCreated, status)
	status, _ = api.do(http.MethodPost, "/api/v1/wallets", "bob", auth.RoleUser, nil)
	require.Equal(t, http.StatusCreated, status)

	// the same idempotency key twice credits once
	for i := 0; i < 2; i++ {
		status, _ = api.do(http.MethodPost, "/api/v1/wallets/me/deposit", "alice", auth.RoleUser,
			map[string]interface{}{"amount": "100.00"}, "Idempotency-Key", "dep-1")
		require.Equal(t, http.StatusCreated, status)
	}

	status, response := api.do(http.MethodPost, "/api/v1/wallets/me/transfer", "alice", auth.RoleUser,
		map[string]interface{}{"to_user_id": "bob", "amount": "40"})
	require.Equal(t, http.StatusCreated, status)

	var legs struct {
		Outgoing struct {
			ID string `json:"id"`
		} `json:"outgoing"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &legs))

	status, response = api.do(http.MethodGet, "/api/v1/wallets/me", "alice", auth.RoleUser, nil)
	require.Equal(t, http.StatusOK, status)
	var wallet struct {
		Balance        int64  `json:"balance"`
		BalanceDisplay string `json:"balance_display"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &wallet))
	assert.Equal(t, int64(6_000), wallet.Balance)
	assert.Equal(t, "60.00", wallet.BalanceDisplay)

	status, _ = api.do(http.MethodGet, "/api/v1/transactions/"+legs.Outgoing.ID, "alice", auth.RoleUser, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/api/v1/transactions/"+legs.Outgoing.ID, "bob", auth.RoleUser, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, response = api.do(http.MethodPost, "/api/v1/wallets/me/withdraw", "bob", auth.RoleUser,
		map[string]interface{}{"amount": "41"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_FUNDS", response.Code)

	status, response = api.do(http.MethodPost, "/api/v1/admin/reconciliation", "ops", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, status)
	var run struct {
		Checked int `json:"checked"`
		Issues  int `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &run))
	assert.Equal(t, 2, run.Checked)
	assert.Zero(t, run.Issues)
}

func TestRoutes_Authorization(t *testing.T) {
	api := newAPI(t)

	status, _ := api.do(http.MethodGet, "/api/v1/wallets/me", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodPost, "/api/v1/admin/reconciliation", "alice", auth.RoleUser, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, "/api/v1/transactions/any/refund", "alice", auth.RoleUser, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodGet, "/ready", "", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRoutes_Metrics(t *testing.T) {
	api := newAPI(t)

	status, _ := api.do(http.MethodPost, "/api/v1/wallets", "alice", auth.RoleUser, nil)
	require.Equal(t, http.StatusCreated, status)
	status, _ = api.do(http.MethodPost, "/api/v1/wallets/me/deposit", "alice", auth.RoleUser, map[string]interface{}{"amount": 5})
	require.Equal(t, http.StatusCreated, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wallet_ledger_transaction_transitions_total")
}
