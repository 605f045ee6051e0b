package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adminMocks struct {
	wallet         *MockWalletUseCase
	reconciliation *MockReconciliationUseCase
	analytics      *MockAnalyticsUseCase
}

func setupAdminRoutes(router *gin.Engine) adminMocks {
	mocks := adminMocks{
		wallet:         &MockWalletUseCase{},
		reconciliation: &MockReconciliationUseCase{},
		analytics:      &MockAnalyticsUseCase{},
	}
	handler := NewAdminHandler(mocks.wallet, mocks.reconciliation, mocks.analytics)
	router.GET("/admin/stats/transactions", handler.GetTransactionStats)
	router.PATCH("/admin/wallets/:id/status", handler.UpdateWalletStatus)
	router.PUT("/admin/wallets/:id/limits", handler.UpdateWalletLimits)
	router.POST("/admin/reconciliation", handler.PerformReconciliation)
	router.GET("/admin/reconciliation", handler.GetReconciliationReports)
	return mocks
}

func TestAdminHandler_GetTransactionStats(t *testing.T) {
	t.Run("should parse the range and filters", func(t *testing.T) {
		router := newTestRouter("admin-1", "admin")
		mocks := setupAdminRoutes(router)

		from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		mocks.analytics.On("GetTransactionStats", mock.Anything, models.TransactionStatsFilter{
			From:     from,
			To:       to,
			WalletID: "wallet-1",
		}).Return(&usecases.TransactionStatsReport{From: from, To: to, TotalCount: 3}, nil)

		w := doRequest(router, http.MethodGet, "/admin/stats/transactions?from=2025-01-01T00:00:00Z&to=2025-02-01T00:00:00Z&wallet_id=wallet-1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var report struct {
			TotalCount int64 `json:"total_count"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &report))
		assert.Equal(t, int64(3), report.TotalCount)
		mocks.analytics.AssertExpectations(t)
	})

	t.Run("should reject a malformed time", func(t *testing.T) {
		router := newTestRouter("admin-1", "admin")
		setupAdminRoutes(router)

		w := doRequest(router, http.MethodGet, "/admin/stats/transactions?from=yesterday", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminHandler_UpdateWalletStatus(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockWalletUseCase)
		expectedStatus int
	}{
		{
			name: "suspend",
			body: map[string]string{"status": "suspended"},
			setupMock: func(walletUC *MockWalletUseCase) {
				wallet := usdWallet()
				wallet.Status = models.WalletStatusSuspended
				walletUC.On("UpdateWalletStatus", mock.Anything, "wallet-1", models.WalletStatusSuspended).Return(wallet, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown status is rejected by binding",
			body:           map[string]string{"status": "dormant"},
			setupMock:      func(*MockWalletUseCase) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "closing a funded wallet",
			body: map[string]string{"status": "closed"},
			setupMock: func(walletUC *MockWalletUseCase) {
				walletUC.On("UpdateWalletStatus", mock.Anything, "wallet-1", models.WalletStatusClosed).
					Return(nil, apperrors.NewValidationError("cannot close a wallet holding %d", 100))
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter("admin-1", "admin")
			mocks := setupAdminRoutes(router)
			tt.setupMock(mocks.wallet)

			w := doRequest(router, http.MethodPatch, "/admin/wallets/wallet-1/status", tt.body, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			mocks.wallet.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_UpdateWalletLimits(t *testing.T) {
	router := newTestRouter("admin-1", "admin")
	mocks := setupAdminRoutes(router)

	limits := models.WalletLimits{MaxSingleTransaction: 1_000, DailyLimit: 5_000}
	wallet := usdWallet()
	wallet.Limits = limits
	mocks.wallet.On("UpdateWalletLimits", mock.Anything, "wallet-1", limits).Return(wallet, nil)

	w := doRequest(router, http.MethodPut, "/admin/wallets/wallet-1/limits", map[string]int64{
		"max_single_transaction": 1_000,
		"daily_limit":            5_000,
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	mocks.wallet.AssertExpectations(t)
}

func TestAdminHandler_PerformReconciliation(t *testing.T) {
	t.Run("should summarise a full run", func(t *testing.T) {
		router := newTestRouter("admin-1", "admin")
		mocks := setupAdminRoutes(router)
		mocks.reconciliation.On("PerformReconciliation", mock.Anything).Return([]models.ReconciliationReport{
			{ID: "r1", WalletID: "w1", Status: models.ReconciliationStatusMatch},
			{ID: "r2", WalletID: "w2", Status: models.ReconciliationStatusMismatch, Difference: 5},
			{ID: "r3", WalletID: "w3", Status: models.ReconciliationStatusMatch},
		}, nil)

		w := doRequest(router, http.MethodPost, "/admin/reconciliation", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var run struct {
			Checked    int `json:"checked"`
			Issues     int `json:"issues"`
			Mismatches []struct {
				WalletID string `json:"wallet_id"`
				Severity string `json:"severity"`
			} `json:"mismatches"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &run))
		assert.Equal(t, 3, run.Checked)
		assert.Equal(t, 1, run.Issues)
		require.Len(t, run.Mismatches, 1)
		assert.Equal(t, "w2", run.Mismatches[0].WalletID)
		assert.Equal(t, "WARNING", run.Mismatches[0].Severity)
	})

	t.Run("should reconcile a single wallet", func(t *testing.T) {
		router := newTestRouter("admin-1", "admin")
		mocks := setupAdminRoutes(router)
		mocks.reconciliation.On("PerformWalletReconciliation", mock.Anything, "w9").
			Return(nil, apperrors.NewWalletNotFoundError("w9"))

		w := doRequest(router, http.MethodPost, "/admin/reconciliation?wallet_id=w9", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		mocks.reconciliation.AssertExpectations(t)
	})
}

func TestAdminHandler_GetReconciliationReports(t *testing.T) {
	router := newTestRouter("admin-1", "admin")
	mocks := setupAdminRoutes(router)
	mocks.reconciliation.On("GetMismatchReports", mock.Anything, 1, 20).Return([]models.ReconciliationReport{
		{ID: "r2", WalletID: "w2", Status: models.ReconciliationStatusChainBroken},
	}, nil)

	w := doRequest(router, http.MethodGet, "/admin/reconciliation?issues=true", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	mocks.reconciliation.AssertExpectations(t)
	mocks.reconciliation.AssertNotCalled(t, "GetReconciliationReports", mock.Anything, mock.Anything, mock.Anything)
}
