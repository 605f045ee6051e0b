package handlers

import (
	"net/http"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/dto"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	walletUseCase         usecases.WalletUseCase
	reconciliationUseCase usecases.ReconciliationUseCase
	analyticsUseCase      usecases.AnalyticsUseCase
}

func NewAdminHandler(walletUseCase usecases.WalletUseCase, reconciliationUseCase usecases.ReconciliationUseCase, analyticsUseCase usecases.AnalyticsUseCase) *AdminHandler {
	return &AdminHandler{
		walletUseCase:         walletUseCase,
		reconciliationUseCase: reconciliationUseCase,
		analyticsUseCase:      analyticsUseCase,
	}
}

// GetTransactionStats godoc
//
//	@Summary		Transaction statistics
//	@Description	Counts and completed volume by type and status. Defaults to the last 30 days.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			from		query		string	false	"Range start (RFC3339)"
//	@Param			to			query		string	false	"Range end (RFC3339)"
//	@Param			wallet_id	query		string	false	"Restrict to one wallet"
//	@Param			user_id		query		string	false	"Restrict to one user"
//	@Success		200			{object}	dto.APIResponse{data=usecases.TransactionStatsReport}
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		403			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Router			/admin/stats/transactions [get]
func (h *AdminHandler) GetTransactionStats(c *gin.Context) {
	filter := models.TransactionStatsFilter{
		WalletID: c.Query("wallet_id"),
		UserID:   c.Query("user_id"),
	}

	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		respondError(c, "Invalid range", err)
		return
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		respondError(c, "Invalid range", err)
		return
	}

	report, err := h.analyticsUseCase.GetTransactionStats(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "Failed to compute transaction statistics", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Transaction statistics retrieved successfully",
		Data:    report,
	})
}

// UpdateWalletStatus godoc
//
//	@Summary		Update wallet status
//	@Description	Suspend, freeze, close or reactivate a wallet
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string							true	"Wallet ID"
//	@Param			request	body		dto.UpdateWalletStatusRequest	true	"New status"
//	@Success		200		{object}	dto.APIResponse{data=dto.WalletResponse}
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		403		{object}	dto.ErrorResponse
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		500		{object}	dto.ErrorResponse
//	@Router			/admin/wallets/{id}/status [patch]
func (h *AdminHandler) UpdateWalletStatus(c *gin.Context) {
	var req dto.UpdateWalletStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	wallet, err := h.walletUseCase.UpdateWalletStatus(c.Request.Context(), c.Param("id"), models.WalletStatus(req.Status))
	if err != nil {
		respondError(c, "Failed to update wallet status", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Wallet status updated successfully",
		Data:    dto.ToWalletResponse(wallet),
	})
}

// UpdateWalletLimits godoc
//
//	@Summary		Update wallet limits
//	@Description	Replace the transaction limits of a wallet. Zero means unlimited.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Wallet ID"
//	@Param			request	body		dto.WalletLimitsRequest	true	"New limits"
//	@Success		200		{object}	dto.APIResponse{data=dto.WalletResponse}
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		403		{object}	dto.ErrorResponse
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		500		{object}	dto.ErrorResponse
//	@Router			/admin/wallets/{id}/limits [put]
func (h *AdminHandler) UpdateWalletLimits(c *gin.Context) {
	var req dto.WalletLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	wallet, err := h.walletUseCase.UpdateWalletLimits(c.Request.Context(), c.Param("id"), req.ToModel())
	if err != nil {
		respondError(c, "Failed to update wallet limits", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Wallet limits updated successfully",
		Data:    dto.ToWalletResponse(wallet),
	})
}

// PerformReconciliation godoc
//
//	@Summary		Run reconciliation
//	@Description	Compare stored balances with balance history. wallet_id limits the run to one wallet.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			wallet_id	query		string	false	"Wallet ID"
//	@Success		200			{object}	dto.APIResponse{data=dto.ReconciliationRunResponse}
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		403			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Router			/admin/reconciliation [post]
func (h *AdminHandler) PerformReconciliation(c *gin.Context) {
	var reports []models.ReconciliationReport

	if walletID := c.Query("wallet_id"); walletID != "" {
		report, err := h.reconciliationUseCase.PerformWalletReconciliation(c.Request.Context(), walletID)
		if err != nil {
			respondError(c, "Reconciliation failed", err)
			return
		}
		reports = append(reports, *report)
	} else {
		var err error
		reports, err = h.reconciliationUseCase.PerformReconciliation(c.Request.Context())
		if err != nil {
			respondError(c, "Reconciliation failed", err)
			return
		}
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Reconciliation completed",
		Data:    dto.ToReconciliationRunResponse(reports),
	})
}

// GetReconciliationReports godoc
//
//	@Summary		List reconciliation reports
//	@Description	Stored reconciliation reports, newest first
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			issues	query		bool	false	"Only reports with an issue"
//	@Param			page	query		int		false	"Page number"	default(1)
//	@Param			limit	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200		{object}	dto.APIResponse{data=[]dto.ReconciliationReportResponse}
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		403		{object}	dto.ErrorResponse
//	@Failure		500		{object}	dto.ErrorResponse
//	@Router			/admin/reconciliation [get]
func (h *AdminHandler) GetReconciliationReports(c *gin.Context) {
	page, limit := pagination(c)

	var (
		reports []models.ReconciliationReport
		err     error
	)
	if c.Query("issues") == "true" {
		reports, err = h.reconciliationUseCase.GetMismatchReports(c.Request.Context(), page, limit)
	} else {
		reports, err = h.reconciliationUseCase.GetReconciliationReports(c.Request.Context(), page, limit)
	}
	if err != nil {
		respondError(c, "Failed to retrieve reconciliation reports", err)
		return
	}

	responses := make([]dto.ReconciliationReportResponse, len(reports))
	for i := range reports {
		responses[i] = dto.ToReconciliationReportResponse(&reports[i])
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Reconciliation reports retrieved successfully",
		Data:    responses,
	})
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("%s must be RFC3339: %v", key, err)
	}
	return parsed, nil
}
