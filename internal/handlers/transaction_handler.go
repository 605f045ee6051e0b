package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/dto"
	"github.com/estatex/wallet-ledger/internal/middleware"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	ledgerUseCase usecases.LedgerUseCase
	retryUseCase  usecases.RetryUseCase
}

func NewTransactionHandler(ledgerUseCase usecases.LedgerUseCase, retryUseCase usecases.RetryUseCase) *TransactionHandler {
	return &TransactionHandler{
		ledgerUseCase: ledgerUseCase,
		retryUseCase:  retryUseCase,
	}
}

// ownedTransaction loads the :id transaction if the caller owns it or is an
// admin. Someone else's transaction is reported as not found.
func (h *TransactionHandler) ownedTransaction(c *gin.Context) (*models.Transaction, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respondUnauthorized(c)
		return nil, false
	}

	id := c.Param("id")
	txn, err := h.ledgerUseCase.GetTransaction(c.Request.Context(), id)
	if err == nil && txn.UserID != userID && !middleware.IsAdmin(c) {
		err = apperrors.NewTransactionNotFoundError(id)
	}
	if err != nil {
		respondError(c, "Transaction not found", err)
		return nil, false
	}

	return txn, true
}

// GetTransaction godoc
//
//	@Summary		Get transaction
//	@Description	Retrieve a transaction owned by the authenticated user
//	@Tags			transactions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Transaction ID"
//	@Success		200	{object}	dto.APIResponse{data=dto.TransactionResponse}
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Router			/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	txn, ok := h.ownedTransaction(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Transaction retrieved successfully",
		Data:    dto.ToTransactionResponse(txn),
	})
}

// RetryTransaction godoc
//
//	@Summary		Retry transaction
//	@Description	Re-run a failed transaction inside its retry window and budget
//	@Tags			transactions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Transaction ID"
//	@Success		200	{object}	dto.APIResponse{data=dto.TransactionResponse}
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		409	{object}	dto.ErrorResponse	"Concurrent retry"
//	@Failure		422	{object}	dto.ErrorResponse	"Retry not allowed"
//	@Failure		500	{object}	dto.ErrorResponse
//	@Router			/transactions/{id}/retry [post]
func (h *TransactionHandler) RetryTransaction(c *gin.Context) {
	txn, ok := h.ownedTransaction(c)
	if !ok {
		return
	}

	retried, err := h.retryUseCase.RetryTransaction(c.Request.Context(), txn.ID)
	if err != nil {
		respondError(c, "Retry failed", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Transaction retried successfully",
		Data:    dto.ToTransactionResponse(retried),
	})
}

// CancelTransaction godoc
//
//	@Summary		Cancel transaction
//	@Description	Cancel a transaction that has not touched any balance
//	@Tags			transactions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Transaction ID"
//	@Success		200	{object}	dto.APIResponse{data=dto.TransactionResponse}
//	@Failure		400	{object}	dto.ErrorResponse	"Invalid transition"
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Router			/transactions/{id}/cancel [post]
func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	txn, ok := h.ownedTransaction(c)
	if !ok {
		return
	}

	cancelled, err := h.ledgerUseCase.CancelTransaction(c.Request.Context(), txn.ID)
	if err != nil {
		respondError(c, "Cancel failed", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Transaction cancelled successfully",
		Data:    dto.ToTransactionResponse(cancelled),
	})
}

// RefundTransaction godoc
//
//	@Summary		Refund transaction
//	@Description	Reverse a completed investment debit or withdrawal. Admin only.
//	@Tags			transactions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Transaction ID"
//	@Param			request	body		dto.RefundRequest	false	"Refund request"
//	@Success		201		{object}	dto.APIResponse{data=dto.TransactionResponse}
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		403		{object}	dto.ErrorResponse
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		500		{object}	dto.ErrorResponse
//	@Router			/transactions/{id}/refund [post]
func (h *TransactionHandler) RefundTransaction(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	refund, err := h.ledgerUseCase.Refund(c.Request.Context(), usecases.RefundCommand{
		TransactionID: c.Param("id"),
		Reason:        req.Reason,
	})
	if err != nil {
		respondError(c, "Refund failed", err)
		return
	}

	respondTransaction(c, "Refund completed successfully", refund)
}
