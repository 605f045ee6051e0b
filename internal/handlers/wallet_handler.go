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
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader carries the client's retry key on money-moving requests
const IdempotencyKeyHeader = "Idempotency-Key"

type WalletHandler struct {
	walletUseCase usecases.WalletUseCase
	ledgerUseCase usecases.LedgerUseCase
}

func NewWalletHandler(walletUseCase usecases.WalletUseCase, ledgerUseCase usecases.LedgerUseCase) *WalletHandler {
	return &WalletHandler{
		walletUseCase: walletUseCase,
		ledgerUseCase: ledgerUseCase,
	}
}

// authenticatedWallet resolves the caller's wallet. The wallet_type query
// parameter selects a non-primary wallet. On failure the response has
// already been written.
func (h *WalletHandler) authenticatedWallet(c *gin.Context) (*models.Wallet, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respondUnauthorized(c)
		return nil, false
	}

	walletType := c.DefaultQuery("wallet_type", models.DefaultWalletType)
	wallet, err := h.walletUseCase.GetWalletByType(c.Request.Context(), userID, walletType)
	if err != nil {
		respondError(c, "Wallet not found", err)
		return nil, false
	}

	return wallet, true
}

// CreateWallet godoc
//
//	@Summary		Create wallet
//	@Description	Open a wallet for the authenticated user. One wallet per wallet type.
//	@Tags			wallets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		dto.CreateWalletRequest	false	"Create wallet request"
//	@Success		201		{object}	dto.APIResponse{data=dto.WalletResponse}
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		409		{object}	dto.ErrorResponse	"Wallet already exists"
//	@Failure		500		{object}	dto.ErrorResponse
//	@Router			/wallets [post]
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respondUnauthorized(c)
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	cmd := usecases.CreateWalletCommand{
		UserID:     userID,
		WalletType: req.WalletType,
		Currency:   req.Currency,
	}
	if req.Limits != nil {
		limits := req.Limits.ToModel()
		cmd.Limits = &limits
	}

	wallet, err := h.walletUseCase.CreateWallet(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, "Failed to create wallet", err)
		return
	}

	c.JSON(http.StatusCreated, dto.APIResponse{
		Success: true,
		Message: "Wallet created successfully",
		Data:    dto.ToWalletResponse(wallet),
	})
}

// ListWallets godoc
//
//	@Summary		List wallets
//	@Description	List every wallet owned by the authenticated user
//	@Tags			wallets
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	dto.APIResponse{data=[]dto.WalletResponse}
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Router			/wallets [get]
func (h *WalletHandler) ListWallets(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respondUnauthorized(c)
		return
	}

	wallets, err := h.walletUseCase.ListWallets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to list wallets", err)
		return
	}

	responses := make([]dto.WalletResponse, len(wallets))
	for i := range wallets {
		responses[i] = dto.ToWalletResponse(&wallets[i])
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Wallets retrieved successfully",
		Data:    responses,
	})
}

// GetWallet godoc
//
//	@Summary		Get wallet by authenticated user
//	@Description	Retrieve wallet information for the authenticated user
//	@Tags			wallets
//	@Produce		json
//	@Security		BearerAuth
//	@Param			wallet_type	query		string	false	"Wallet type"	default(primary)
//	@Success		200			{object}	dto.APIResponse{data=dto.WalletResponse}
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Router			/wallets/me [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Wallet retrieved successfully",
		Data:    dto.ToWalletResponse(wallet),
	})
}

// GetWalletStats godoc
//
//	@Summary		Get wallet statistics
//	@Description	Balance, windowed usage and remaining limit headroom
//	@Tags			wallets
//	@Produce		json
//	@Security		BearerAuth
//	@Param			wallet_type	query		string	false	"Wallet type"	default(primary)
//	@Success		200			{object}	dto.APIResponse{data=usecases.WalletStats}
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Router			/wallets/me/stats [get]
func (h *WalletHandler) GetWalletStats(c *gin.Context) {
	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	stats, err := h.walletUseCase.GetWalletStats(c.Request.Context(), wallet.ID)
	if err != nil {
		respondError(c, "Failed to retrieve wallet statistics", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Wallet statistics retrieved successfully",
		Data:    stats,
	})
}

// GetBalanceHistory godoc
//
//	@Summary		Get balance history
//	@Description	Ledger lines of the authenticated user's wallet, newest first
//	@Tags			wallets
//	@Produce		json
//	@Security		BearerAuth
//	@Param			wallet_type	query		string	false	"Wallet type"	default(primary)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			limit		query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	dto.APIResponse{data=dto.BalanceHistoryResponse}
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Router			/wallets/me/history [get]
func (h *WalletHandler) GetBalanceHistory(c *gin.Context) {
	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	page, limit := pagination(c)
	entries, total, err := h.walletUseCase.GetBalanceHistory(c.Request.Context(), wallet.ID, page, limit)
	if err != nil {
		respondError(c, "Failed to retrieve balance history", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Balance history retrieved successfully",
		Data: dto.BalanceHistoryResponse{
			Entries:    dto.ToBalanceHistoryEntryResponses(entries),
			Pagination: dto.NewPaginationMeta(page, limit, total),
		},
	})
}

// GetTransactionHistory godoc
//
//	@Summary		Get transaction history
//	@Description	Transactions of the authenticated user's wallet, newest first
//	@Tags			wallets
//	@Produce		json
//	@Security		BearerAuth
//	@Param			wallet_type	query		string	false	"Wallet type"	default(primary)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			limit		query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	dto.APIResponse{data=dto.TransactionHistoryResponse}
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Router			/wallets/me/transactions [get]
func (h *WalletHandler) GetTransactionHistory(c *gin.Context) {
	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	page, limit := pagination(c)
	transactions, total, err := h.ledgerUseCase.ListTransactions(c.Request.Context(), wallet.ID, page, limit)
	if err != nil {
		respondError(c, "Failed to retrieve transaction history", err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "Transaction history retrieved successfully",
		Data: dto.TransactionHistoryResponse{
			Transactions: dto.ToTransactionResponses(transactions),
			Pagination:   dto.NewPaginationMeta(page, limit, total),
		},
	})
}

// Deposit godoc
//
//	@Summary		Deposit
//	@Description	Credit the authenticated user's wallet. Amount is in major units.
//	@Tags			wallets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string				false	"Client retry key"
//	@Param			wallet_type		query		string				false	"Wallet type"	default(primary)
//	@Param			request			body		dto.DepositRequest	true	"Deposit request"
//	@Success		201				{object}	dto.APIResponse{data=dto.TransactionResponse}
//	@Success		202				{object}	dto.APIResponse{data=dto.TransactionResponse}	"Still processing"
//	@Failure		400				{object}	dto.ErrorResponse
//	@Failure		401				{object}	dto.ErrorResponse
//	@Failure		404				{object}	dto.ErrorResponse
//	@Failure		409				{object}	dto.ErrorResponse	"Idempotency key reused"
//	@Failure		422				{object}	dto.ErrorResponse	"Limit exceeded or wallet inactive"
//	@Failure		500				{object}	dto.ErrorResponse
//	@Router			/wallets/me/deposit [post]
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	amount, err := minorAmount(wallet, req.Amount)
	if err != nil {
		respondError(c, "Invalid amount", err)
		return
	}

	txn, err := h.ledgerUseCase.Deposit(c.Request.Context(), usecases.DepositCommand{
		WalletID:         wallet.ID,
		Amount:           amount,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Description:      req.Description,
		IdempotencyKey:   c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		respondError(c, "Deposit failed", err)
		return
	}

	respondTransaction(c, "Deposit completed successfully", txn)
}

// Withdraw godoc
//
//	@Summary		Withdraw
//	@Description	Debit the authenticated user's wallet. The withdrawal fee is taken on top of the amount.
//	@Tags			wallets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string				false	"Client retry key"
//	@Param			wallet_type		query		string				false	"Wallet type"	default(primary)
//	@Param			request			body		dto.WithdrawRequest	true	"Withdraw request"
//	@Success		201				{object}	dto.APIResponse{data=dto.TransactionResponse}
//	@Success		202				{object}	dto.APIResponse{data=dto.TransactionResponse}	"Still processing"
//	@Failure		400				{object}	dto.ErrorResponse
//	@Failure		401				{object}	dto.ErrorResponse
//	@Failure		404				{object}	dto.ErrorResponse
//	@Failure		409				{object}	dto.ErrorResponse	"Idempotency key reused"
//	@Failure		422				{object}	dto.ErrorResponse	"Insufficient funds"
//	@Failure		500				{object}	dto.ErrorResponse
//	@Router			/wallets/me/withdraw [post]
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	amount, err := minorAmount(wallet, req.Amount)
	if err != nil {
		respondError(c, "Invalid amount", err)
		return
	}

	txn, err := h.ledgerUseCase.Withdraw(c.Request.Context(), usecases.WithdrawCommand{
		WalletID:         wallet.ID,
		Amount:           amount,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Description:      req.Description,
		IdempotencyKey:   c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		respondError(c, "Withdrawal failed", err)
		return
	}

	respondTransaction(c, "Withdrawal completed successfully", txn)
}

// Transfer godoc
//
//	@Summary		Transfer
//	@Description	Move funds to another user's primary wallet
//	@Tags			wallets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string				false	"Client retry key"
//	@Param			wallet_type		query		string				false	"Source wallet type"	default(primary)
//	@Param			request			body		dto.TransferRequest	true	"Transfer request"
//	@Success		201				{object}	dto.APIResponse{data=dto.TransferResponse}
//	@Failure		400				{object}	dto.ErrorResponse
//	@Failure		401				{object}	dto.ErrorResponse
//	@Failure		404				{object}	dto.ErrorResponse	"Recipient not found"
//	@Failure		409				{object}	dto.ErrorResponse	"Idempotency key reused"
//	@Failure		422				{object}	dto.ErrorResponse	"Insufficient funds"
//	@Failure		500				{object}	dto.ErrorResponse
//	@Router			/wallets/me/transfer [post]
func (h *WalletHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	amount, err := minorAmount(wallet, req.Amount)
	if err != nil {
		respondError(c, "Invalid amount", err)
		return
	}

	outgoing, incoming, err := h.ledgerUseCase.Transfer(c.Request.Context(), usecases.TransferCommand{
		FromWalletID:   wallet.ID,
		ToUserID:       req.ToUserID,
		Amount:         amount,
		Description:    req.Description,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		respondError(c, "Transfer failed", err)
		return
	}

	status := http.StatusCreated
	if inFlight(outgoing) {
		status = http.StatusAccepted
	}
	response := dto.TransferResponse{Outgoing: dto.ToTransactionResponse(outgoing)}
	if incoming != nil {
		response.Incoming = dto.ToTransactionResponse(incoming)
	}

	c.JSON(status, dto.APIResponse{
		Success: true,
		Message: "Transfer completed successfully",
		Data:    response,
	})
}

// DebitForInvestment godoc
//
//	@Summary		Debit for investment
//	@Description	Take the price of a property share from the wallet. The investment reference is the idempotency key.
//	@Tags			wallets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			wallet_type	query		string						false	"Wallet type"	default(primary)
//	@Param			request		body		dto.InvestmentDebitRequest	true	"Investment debit request"
//	@Success		201			{object}	dto.APIResponse{data=dto.TransactionResponse}
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		409			{object}	dto.ErrorResponse	"Investment reference reused"
//	@Failure		422			{object}	dto.ErrorResponse	"Insufficient funds"
//	@Failure		500			{object}	dto.ErrorResponse
//	@Router			/wallets/me/investments [post]
func (h *WalletHandler) DebitForInvestment(c *gin.Context) {
	var req dto.InvestmentDebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err)
		return
	}

	wallet, ok := h.authenticatedWallet(c)
	if !ok {
		return
	}

	amount, err := minorAmount(wallet, req.Amount)
	if err != nil {
		respondError(c, "Invalid amount", err)
		return
	}

	txn, err := h.ledgerUseCase.DebitForInvestment(c.Request.Context(), usecases.InvestmentDebitCommand{
		WalletID:      wallet.ID,
		Amount:        amount,
		InvestmentRef: req.InvestmentRef,
	})
	if err != nil {
		respondError(c, "Investment debit failed", err)
		return
	}

	respondTransaction(c, "Investment debit completed successfully", txn)
}

// respondTransaction answers 201 for a finished transaction and 202 for an
// idempotent replay that is still in flight.
func respondTransaction(c *gin.Context, message string, txn *models.Transaction) {
	status := http.StatusCreated
	if inFlight(txn) {
		status = http.StatusAccepted
		message = "Transaction is being processed"
	}

	c.JSON(status, dto.APIResponse{
		Success: true,
		Message: message,
		Data:    dto.ToTransactionResponse(txn),
	})
}

// minorAmount converts a request amount in major units to the wallet's minor units
func minorAmount(wallet *models.Wallet, amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, apperrors.NewValidationError("amount must be greater than zero")
	}
	return wallet.Currency.FromMajor(amount)
}

func inFlight(txn *models.Transaction) bool {
	return txn.Status == models.TransactionStatusPending || txn.Status == models.TransactionStatusProcessing
}
