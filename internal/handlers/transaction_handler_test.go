package handlers

import (
	"net/http"
	"testing"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupTransactionRoutes(router *gin.Engine, ledgerUC *MockLedgerUseCase, retryUC *MockRetryUseCase) {
	handler := NewTransactionHandler(ledgerUC, retryUC)
	router.GET("/transactions/:id", handler.GetTransaction)
	router.POST("/transactions/:id/retry", handler.RetryTransaction)
	router.POST("/transactions/:id/cancel", handler.CancelTransaction)
	router.POST("/transactions/:id/refund", handler.RefundTransaction)
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		role           string
		setupMock      func(*MockLedgerUseCase)
		expectedStatus int
	}{
		{
			name:   "owner sees transaction",
			userID: "user-1",
			role:   "user",
			setupMock: func(ledgerUC *MockLedgerUseCase) {
				ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(completedTransaction(models.TransactionTypeDeposit, 100), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "another user gets not found",
			userID: "user-2",
			role:   "user",
			setupMock: func(ledgerUC *MockLedgerUseCase) {
				ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(completedTransaction(models.TransactionTypeDeposit, 100), nil)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "admin sees any transaction",
			userID: "admin-1",
			role:   "admin",
			setupMock: func(ledgerUC *MockLedgerUseCase) {
				ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(completedTransaction(models.TransactionTypeDeposit, 100), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "unknown transaction",
			userID: "user-1",
			role:   "user",
			setupMock: func(ledgerUC *MockLedgerUseCase) {
				ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(nil, apperrors.NewTransactionNotFoundError("txn-1"))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledgerUC := &MockLedgerUseCase{}
			tt.setupMock(ledgerUC)

			router := newTestRouter(tt.userID, tt.role)
			setupTransactionRoutes(router, ledgerUC, &MockRetryUseCase{})

			w := doRequest(router, http.MethodGet, "/transactions/txn-1", nil, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			ledgerUC.AssertExpectations(t)
		})
	}
}

func TestTransactionHandler_RetryTransaction(t *testing.T) {
	failed := completedTransaction(models.TransactionTypeDeposit, 100)
	failed.Status = models.TransactionStatusFailed

	t.Run("should retry an owned transaction", func(t *testing.T) {
		ledgerUC := &MockLedgerUseCase{}
		ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(failed, nil)
		retryUC := &MockRetryUseCase{}
		retryUC.On("RetryTransaction", mock.Anything, "txn-1").Return(completedTransaction(models.TransactionTypeDeposit, 100), nil)

		router := newTestRouter("user-1", "user")
		setupTransactionRoutes(router, ledgerUC, retryUC)

		w := doRequest(router, http.MethodPost, "/transactions/txn-1/retry", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		retryUC.AssertExpectations(t)
	})

	t.Run("should surface a refused retry", func(t *testing.T) {
		ledgerUC := &MockLedgerUseCase{}
		ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(failed, nil)
		retryUC := &MockRetryUseCase{}
		retryUC.On("RetryTransaction", mock.Anything, "txn-1").Return(nil, apperrors.NewRetryNotAllowedError("retry window has closed"))

		router := newTestRouter("user-1", "user")
		setupTransactionRoutes(router, ledgerUC, retryUC)

		w := doRequest(router, http.MethodPost, "/transactions/txn-1/retry", nil, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "retry window has closed", decode(t, w).Error)
	})

	t.Run("should not retry someone else's transaction", func(t *testing.T) {
		ledgerUC := &MockLedgerUseCase{}
		ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(failed, nil)
		retryUC := &MockRetryUseCase{}

		router := newTestRouter("user-2", "user")
		setupTransactionRoutes(router, ledgerUC, retryUC)

		w := doRequest(router, http.MethodPost, "/transactions/txn-1/retry", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		retryUC.AssertNotCalled(t, "RetryTransaction", mock.Anything, mock.Anything)
	})
}

func TestTransactionHandler_CancelTransaction(t *testing.T) {
	completed := completedTransaction(models.TransactionTypeWithdrawal, -100)

	ledgerUC := &MockLedgerUseCase{}
	ledgerUC.On("GetTransaction", mock.Anything, "txn-1").Return(completed, nil)
	ledgerUC.On("CancelTransaction", mock.Anything, "txn-1").
		Return(nil, apperrors.NewInvalidTransitionError("completed", "cancelled"))

	router := newTestRouter("user-1", "user")
	setupTransactionRoutes(router, ledgerUC, &MockRetryUseCase{})

	w := doRequest(router, http.MethodPost, "/transactions/txn-1/cancel", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrInvalidTransition), decode(t, w).Code)
	ledgerUC.AssertExpectations(t)
}

func TestTransactionHandler_RefundTransaction(t *testing.T) {
	refund := completedTransaction(models.TransactionTypeRefund, 100)
	refund.ID = "txn-refund"

	ledgerUC := &MockLedgerUseCase{}
	ledgerUC.On("Refund", mock.Anything, usecases.RefundCommand{TransactionID: "txn-1", Reason: "round cancelled"}).
		Return(refund, nil)

	router := newTestRouter("admin-1", "admin")
	setupTransactionRoutes(router, ledgerUC, &MockRetryUseCase{})

	w := doRequest(router, http.MethodPost, "/transactions/txn-1/refund", map[string]string{"reason": "round cancelled"}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	ledgerUC.AssertExpectations(t)
}
