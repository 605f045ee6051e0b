package dto

import (
	"time"

	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// CreateWalletRequest represents wallet creation request
type CreateWalletRequest struct {
	WalletType string               `json:"wallet_type" example:"primary"`
	Currency   string               `json:"currency" example:"IRR"`
	Limits     *WalletLimitsRequest `json:"limits,omitempty"`
} //@name CreateWalletRequest

// WalletLimitsRequest carries limits in minor units. Zero means unlimited.
type WalletLimitsRequest struct {
	MaxSingleTransaction int64 `json:"max_single_transaction" example:"50000000"`
	DailyLimit           int64 `json:"daily_limit" example:"100000000"`
	MonthlyLimit         int64 `json:"monthly_limit" example:"1000000000"`
	YearlyLimit          int64 `json:"yearly_limit" example:"0"`
} //@name WalletLimitsRequest

func (r WalletLimitsRequest) ToModel() models.WalletLimits {
	return models.WalletLimits{
		MaxSingleTransaction: r.MaxSingleTransaction,
		DailyLimit:           r.DailyLimit,
		MonthlyLimit:         r.MonthlyLimit,
		YearlyLimit:          r.YearlyLimit,
	}
}

// DepositRequest represents deposit request. Amount is in major units.
type DepositRequest struct {
	Amount           decimal.Decimal `json:"amount" binding:"required" example:"2500000"`
	PaymentMethod    string          `json:"payment_method" example:"bank_transfer"`
	PaymentReference string          `json:"payment_reference" example:"PSP-839201"`
	Description      string          `json:"description" example:"Top up"`
} //@name DepositRequest

// WithdrawRequest represents withdraw request
type WithdrawRequest struct {
	Amount           decimal.Decimal `json:"amount" binding:"required" example:"500000"`
	PaymentMethod    string          `json:"payment_method" example:"bank_transfer"`
	PaymentReference string          `json:"payment_reference" example:"IBAN-IR0000"`
	Description      string          `json:"description" example:"Cash out"`
} //@name WithdrawRequest

// TransferRequest represents transfer request
type TransferRequest struct {
	ToUserID    string          `json:"to_user_id" binding:"required" example:"user-2"`
	Amount      decimal.Decimal `json:"amount" binding:"required" example:"750000"`
	Description string          `json:"description" example:"Share of rent"`
} //@name TransferRequest

// InvestmentDebitRequest debits a wallet for a property share purchase
type InvestmentDebitRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required" example:"10000000"`
	InvestmentRef string          `json:"investment_ref" binding:"required" example:"INV-2025-0042"`
	Description   string          `json:"description" example:"Tehran Tower share"`
} //@name InvestmentDebitRequest

// RefundRequest represents refund request
type RefundRequest struct {
	Reason string `json:"reason" example:"Investment round cancelled"`
} //@name RefundRequest

// UpdateWalletStatusRequest represents an administrative status change
type UpdateWalletStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended frozen closed" example:"suspended"`
} //@name UpdateWalletStatusRequest

// RefreshTokenResponse carries a re-issued bearer token
type RefreshTokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
} //@name RefreshTokenResponse

// WalletResponse represents wallet response data
type WalletResponse struct {
	ID             string              `json:"id" example:"5f0c7d8e-2b1a-4c3d-9e8f-1a2b3c4d5e6f"`
	UserID         string              `json:"user_id" example:"user-1"`
	WalletType     string              `json:"wallet_type" example:"primary"`
	Balance        int64               `json:"balance" example:"2500000"`
	BalanceDisplay string              `json:"balance_display" example:"2500000"`
	Currency       string              `json:"currency" example:"IRR"`
	Status         string              `json:"status" example:"active"`
	Limits         models.WalletLimits `json:"limits"`
	Usage          models.UsageStats   `json:"usage_stats"`
	Version        int64               `json:"version" example:"3"`
	CreatedAt      time.Time           `json:"created_at" example:"2025-01-01T00:00:00Z"`
	UpdatedAt      time.Time           `json:"updated_at" example:"2025-01-01T00:00:00Z"`
} //@name WalletResponse

// TransactionResponse represents transaction response data
type TransactionResponse struct {
	ID                   string     `json:"id" example:"01HZX3J8Q7R4S5T6V7W8X9Y0Z1"`
	ReferenceNumber      string     `json:"reference_number,omitempty" example:"TXN-20250101-A1B2C3D4"`
	WalletID             string     `json:"wallet_id" example:"5f0c7d8e-2b1a-4c3d-9e8f-1a2b3c4d5e6f"`
	UserID               string     `json:"user_id" example:"user-1"`
	Type                 string     `json:"type" example:"deposit"`
	Status               string     `json:"status" example:"completed"`
	Amount               int64      `json:"amount" example:"2500000"`
	AmountDisplay        string     `json:"amount_display" example:"2500000"`
	FeeAmount            int64      `json:"fee_amount" example:"0"`
	NetAmount            int64      `json:"net_amount" example:"2500000"`
	Currency             string     `json:"currency" example:"IRR"`
	PaymentMethod        string     `json:"payment_method,omitempty" example:"bank_transfer"`
	PaymentReference     string     `json:"payment_reference,omitempty" example:"PSP-839201"`
	Description          string     `json:"description,omitempty" example:"Top up"`
	RetryCount           int        `json:"retry_count" example:"0"`
	MaxRetries           int        `json:"max_retries" example:"3"`
	ErrorCode            string     `json:"error_code,omitempty" example:""`
	ErrorMessage         string     `json:"error_message,omitempty" example:""`
	CounterpartyWalletID string     `json:"counterparty_wallet_id,omitempty"`
	CounterpartyUserID   string     `json:"counterparty_user_id,omitempty"`
	RelatedTransactionID string     `json:"related_transaction_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at" example:"2025-01-01T00:00:00Z"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	FailedAt             *time.Time `json:"failed_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt           *time.Time `json:"refunded_at,omitempty"`
} //@name TransactionResponse

// TransferResponse holds both legs of a transfer
type TransferResponse struct {
	Outgoing TransactionResponse `json:"outgoing"`
	Incoming TransactionResponse `json:"incoming"`
} //@name TransferResponse

// BalanceHistoryEntryResponse represents one ledger line
type BalanceHistoryEntryResponse struct {
	Sequence        int64     `json:"sequence" example:"4"`
	TransactionID   string    `json:"transaction_id" example:"01HZX3J8Q7R4S5T6V7W8X9Y0Z1"`
	TransactionType string    `json:"transaction_type" example:"withdrawal"`
	Amount          int64     `json:"amount" example:"-500000"`
	PreviousBalance int64     `json:"previous_balance" example:"2500000"`
	NewBalance      int64     `json:"new_balance" example:"2000000"`
	Description     string    `json:"description,omitempty" example:"Cash out"`
	CreatedAt       time.Time `json:"created_at" example:"2025-01-01T00:00:00Z"`
} //@name BalanceHistoryEntryResponse

// BalanceHistoryResponse represents paginated balance history
type BalanceHistoryResponse struct {
	Entries    []BalanceHistoryEntryResponse `json:"entries"`
	Pagination PaginationMeta                `json:"pagination"`
} //@name BalanceHistoryResponse

// TransactionHistoryResponse represents paginated transaction history
type TransactionHistoryResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   PaginationMeta        `json:"pagination"`
} //@name TransactionHistoryResponse

// ReconciliationReportResponse represents reconciliation report data
type ReconciliationReportResponse struct {
	ID                string    `json:"id" example:"0b7e3f2a-9c1d-4e5f-8a6b-7c8d9e0f1a2b"`
	CreatedAt         time.Time `json:"created_at" example:"2025-01-01T00:00:00Z"`
	WalletID          string    `json:"wallet_id" example:"5f0c7d8e-2b1a-4c3d-9e8f-1a2b3c4d5e6f"`
	StoredBalance     int64     `json:"stored_balance" example:"2000000"`
	CalculatedBalance int64     `json:"calculated_balance" example:"2000000"`
	Difference        int64     `json:"difference" example:"0"`
	HistoryEntries    int64     `json:"history_entries" example:"4"`
	Status            string    `json:"status" example:"MATCH"`
	Severity          string    `json:"severity" example:"INFO"`
	Notes             string    `json:"notes" example:"Balance matches"`
} //@name ReconciliationReportResponse

// ReconciliationRunResponse summarises a reconciliation pass
type ReconciliationRunResponse struct {
	Checked    int                            `json:"checked" example:"120"`
	Issues     int                            `json:"issues" example:"0"`
	Mismatches []ReconciliationReportResponse `json:"mismatches"`
} //@name ReconciliationRunResponse

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	Page      int   `json:"page" example:"1"`
	PageSize  int   `json:"page_size" example:"20"`
	Total     int64 `json:"total" example:"100"`
	TotalPage int64 `json:"total_pages" example:"5"`
} //@name PaginationMeta

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success" example:"true"`
	Message string      `json:"message" example:"Operation successful"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty" example:""`
} //@name APIResponse

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Operation failed"`
	Error   string `json:"error" example:"balance 100 is below required 500"`
	Code    string `json:"code,omitempty" example:"INSUFFICIENT_FUNDS"`
} //@name ErrorResponse

func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	meta := PaginationMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		meta.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return meta
}

// Helper functions to convert models to DTOs
func ToWalletResponse(wallet *models.Wallet) WalletResponse {
	return WalletResponse{
		ID:             wallet.ID,
		UserID:         wallet.UserID,
		WalletType:     wallet.WalletType,
		Balance:        wallet.Balance,
		BalanceDisplay: wallet.Currency.Format(wallet.Balance),
		Currency:       string(wallet.Currency),
		Status:         string(wallet.Status),
		Limits:         wallet.Limits,
		Usage:          wallet.Usage,
		Version:        wallet.Version,
		CreatedAt:      wallet.CreatedAt,
		UpdatedAt:      wallet.UpdatedAt,
	}
}

func ToTransactionResponse(transaction *models.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:                   transaction.ID,
		WalletID:             transaction.WalletID,
		UserID:               transaction.UserID,
		Type:                 string(transaction.Type),
		Status:               string(transaction.Status),
		Amount:               transaction.Amount,
		AmountDisplay:        transaction.Currency.Format(transaction.Amount),
		FeeAmount:            transaction.FeeAmount,
		NetAmount:            transaction.NetAmount,
		Currency:             string(transaction.Currency),
		PaymentMethod:        transaction.PaymentMethod,
		PaymentReference:     transaction.PaymentReference,
		Description:          transaction.Description,
		RetryCount:           transaction.RetryCount,
		MaxRetries:           transaction.MaxRetries,
		ErrorCode:            transaction.ErrorCode,
		ErrorMessage:         transaction.ErrorMessage,
		CounterpartyWalletID: transaction.CounterpartyWalletID,
		CounterpartyUserID:   transaction.CounterpartyUserID,
		RelatedTransactionID: transaction.RelatedTransactionID,
		CreatedAt:            transaction.CreatedAt,
		CompletedAt:          transaction.CompletedAt,
		FailedAt:             transaction.FailedAt,
		CancelledAt:          transaction.CancelledAt,
		RefundedAt:           transaction.RefundedAt,
	}
	if transaction.ReferenceNumber != nil {
		response.ReferenceNumber = *transaction.ReferenceNumber
	}
	return response
}

func ToTransactionResponses(transactions []models.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(transactions))
	for i := range transactions {
		responses[i] = ToTransactionResponse(&transactions[i])
	}
	return responses
}

func ToBalanceHistoryEntryResponses(entries []models.BalanceHistoryEntry) []BalanceHistoryEntryResponse {
	responses := make([]BalanceHistoryEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = BalanceHistoryEntryResponse{
			Sequence:        entry.Sequence,
			TransactionID:   entry.TransactionID,
			TransactionType: string(entry.TransactionType),
			Amount:          entry.Amount,
			PreviousBalance: entry.PreviousBalance,
			NewBalance:      entry.NewBalance,
			Description:     entry.Description,
			CreatedAt:       entry.CreatedAt,
		}
	}
	return responses
}

func ToReconciliationReportResponse(report *models.ReconciliationReport) ReconciliationReportResponse {
	return ReconciliationReportResponse{
		ID:                report.ID,
		CreatedAt:         report.CreatedAt,
		WalletID:          report.WalletID,
		StoredBalance:     report.StoredBalance,
		CalculatedBalance: report.CalculatedBalance,
		Difference:        report.Difference,
		HistoryEntries:    report.HistoryEntries,
		Status:            string(report.Status),
		Severity:          report.GetSeverity(),
		Notes:             report.Notes,
	}
}

// ToReconciliationRunResponse keeps only the reports that need attention
func ToReconciliationRunResponse(reports []models.ReconciliationReport) ReconciliationRunResponse {
	response := ReconciliationRunResponse{
		Checked:    len(reports),
		Mismatches: []ReconciliationReportResponse{},
	}
	for i := range reports {
		if reports[i].HasAnyIssue() {
			response.Issues++
			response.Mismatches = append(response.Mismatches, ToReconciliationReportResponse(&reports[i]))
		}
	}
	return response
}
