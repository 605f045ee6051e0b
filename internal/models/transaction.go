package models

import (
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/google/uuid"
)

// DefaultMaxRetries bounds how often a failed transaction may be replayed
const DefaultMaxRetries = 3

// TransactionType represents the business meaning of a transaction
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeWithdrawal  TransactionType = "withdrawal"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeInvestment  TransactionType = "investment"
	TransactionTypeRefund      TransactionType = "refund"
	TransactionTypeFee         TransactionType = "fee"
	TransactionTypeInterest    TransactionType = "interest"
	TransactionTypeDividend    TransactionType = "dividend"
	TransactionTypePurchase    TransactionType = "purchase"
	TransactionTypeSale        TransactionType = "sale"
	TransactionTypeExchange    TransactionType = "exchange"
)

// IsValid checks if the type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransferIn,
		TransactionTypeTransferOut, TransactionTypeInvestment, TransactionTypeRefund,
		TransactionTypeFee, TransactionTypeInterest, TransactionTypeDividend,
		TransactionTypePurchase, TransactionTypeSale, TransactionTypeExchange:
		return true
	}
	return false
}

// IsDebit reports whether the type removes money from the wallet
func (t TransactionType) IsDebit() bool {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypeTransferOut, TransactionTypeInvestment,
		TransactionTypeFee, TransactionTypePurchase, TransactionTypeExchange:
		return true
	}
	return false
}

// SkipsLimits reports whether the type is system-initiated and therefore
// not bounded by the wallet's caller limits.
func (t TransactionType) SkipsLimits() bool {
	switch t {
	case TransactionTypeTransferIn, TransactionTypeRefund, TransactionTypeInterest,
		TransactionTypeDividend, TransactionTypeFee:
		return true
	}
	return false
}

// IsRefundable reports whether a completed transaction of this type can be compensated
func (t TransactionType) IsRefundable() bool {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypeInvestment, TransactionTypeFee,
		TransactionTypePurchase, TransactionTypeExchange:
		return true
	}
	return false
}

// TransactionStatus represents the status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusCancelled},
	TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
	TransactionStatusFailed:     {TransactionStatusPending},
	TransactionStatusCompleted:  {TransactionStatusRefunded},
}

// Transaction is one requested balance movement and its lifecycle
type Transaction struct {
	ID                   string            `json:"id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt            time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt            time.Time         `json:"updated_at"`
	ReferenceNumber      *string           `json:"reference_number,omitempty" gorm:"type:varchar(40);uniqueIndex"`
	WalletID             string            `json:"wallet_id" gorm:"type:varchar(36);not null;index"`
	UserID               string            `json:"user_id" gorm:"type:varchar(64);not null;index"`
	Type                 TransactionType   `json:"type" gorm:"column:type;type:varchar(32);not null;index"`
	Amount               int64             `json:"amount" gorm:"not null"`
	Currency             Currency          `json:"currency" gorm:"type:varchar(3);not null"`
	FeeAmount            int64             `json:"fee_amount" gorm:"not null;default:0"`
	NetAmount            int64             `json:"net_amount" gorm:"not null;default:0"`
	Status               TransactionStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	PaymentMethod        string            `json:"payment_method,omitempty" gorm:"type:varchar(64)"`
	PaymentReference     string            `json:"payment_reference,omitempty" gorm:"type:varchar(128);index"`
	IdempotencyKey       string            `json:"idempotency_key,omitempty" gorm:"type:varchar(128);index"`
	Description          string            `json:"description,omitempty" gorm:"type:varchar(255)"`
	RetryCount           int               `json:"retry_count" gorm:"not null;default:0"`
	MaxRetries           int               `json:"max_retries" gorm:"not null;default:3"`
	ErrorCode            string            `json:"error_code,omitempty" gorm:"type:varchar(64);index"`
	ErrorMessage         string            `json:"error_message,omitempty" gorm:"type:text"`
	CounterpartyWalletID string            `json:"counterparty_wallet_id,omitempty" gorm:"type:varchar(36)"`
	CounterpartyUserID   string            `json:"counterparty_user_id,omitempty" gorm:"type:varchar(64)"`
	RelatedTransactionID string            `json:"related_transaction_id,omitempty" gorm:"type:varchar(36);index"`
	ProcessedAt          *time.Time        `json:"processed_at,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	FailedAt             *time.Time        `json:"failed_at,omitempty"`
	CancelledAt          *time.Time        `json:"cancelled_at,omitempty"`
	RefundedAt           *time.Time        `json:"refunded_at,omitempty"`
	Version              int64             `json:"version" gorm:"not null;default:0"`
}

// TableName overrides the table name used by Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction creates a pending transaction against a wallet.
// Debits carry a negative amount.
func NewTransaction(wallet *Wallet, txType TransactionType, amount, fee int64, now time.Time) *Transaction {
	return &Transaction{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
		WalletID:   wallet.ID,
		UserID:     wallet.UserID,
		Type:       txType,
		Amount:     amount,
		Currency:   wallet.Currency,
		FeeAmount:  fee,
		NetAmount:  absAmount(amount) - fee,
		Status:     TransactionStatusPending,
		MaxRetries: DefaultMaxRetries,
	}
}

// IsCompleted checks if the transaction is completed
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// IsTransfer reports whether the transaction is one leg of a transfer pair
func (t *Transaction) IsTransfer() bool {
	return t.Type == TransactionTypeTransferIn || t.Type == TransactionTypeTransferOut
}

// CanTransitionTo checks the lifecycle graph
func (t *Transaction) CanTransitionTo(status TransactionStatus) bool {
	for _, next := range allowedTransitions[t.Status] {
		if next == status {
			return true
		}
	}
	return false
}

func (t *Transaction) transition(status TransactionStatus, now time.Time) error {
	if !t.CanTransitionTo(status) {
		return apperrors.NewInvalidTransitionError(string(t.Status), string(status))
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

// MarkProcessing moves a pending transaction into processing
func (t *Transaction) MarkProcessing(now time.Time) error {
	if err := t.transition(TransactionStatusProcessing, now); err != nil {
		return err
	}
	at := now
	t.ProcessedAt = &at
	return nil
}

// MarkCompleted finalizes a transaction and stamps its reference number.
func (t *Transaction) MarkCompleted(referenceNumber string, now time.Time) error {
	if err := t.transition(TransactionStatusCompleted, now); err != nil {
		return err
	}
	at := now
	t.CompletedAt = &at
	t.ReferenceNumber = &referenceNumber
	return nil
}

// MarkFailed records why processing stopped
func (t *Transaction) MarkFailed(code apperrors.ErrorCode, message string, now time.Time) error {
	if err := t.transition(TransactionStatusFailed, now); err != nil {
		return err
	}
	at := now
	t.FailedAt = &at
	t.ErrorCode = string(code)
	t.ErrorMessage = message
	return nil
}

// MarkCancelled cancels a transaction that has not been applied
func (t *Transaction) MarkCancelled(now time.Time) error {
	if err := t.transition(TransactionStatusCancelled, now); err != nil {
		return err
	}
	at := now
	t.CancelledAt = &at
	return nil
}

// MarkRefunded flags a completed transaction as compensated
func (t *Transaction) MarkRefunded(now time.Time) error {
	if err := t.transition(TransactionStatusRefunded, now); err != nil {
		return err
	}
	at := now
	t.RefundedAt = &at
	return nil
}

// CheckRetry reports whether the transaction may be retried at now.
func (t *Transaction) CheckRetry(now time.Time, window time.Duration) error {
	if t.Status != TransactionStatusFailed {
		return apperrors.NewRetryNotAllowedError("only failed transactions can be retried")
	}
	if t.RetryCount >= t.MaxRetries {
		return apperrors.NewRetryNotAllowedError("retry budget exhausted")
	}
	if now.Sub(t.CreatedAt) > window {
		return apperrors.NewRetryNotAllowedError("retry window has elapsed")
	}
	return nil
}

// PrepareRetry moves failed back to pending and consumes one retry.
func (t *Transaction) PrepareRetry(now time.Time, window time.Duration) error {
	if err := t.CheckRetry(now, window); err != nil {
		return err
	}
	if err := t.transition(TransactionStatusPending, now); err != nil {
		return err
	}
	t.RetryCount++
	t.ErrorCode = ""
	t.ErrorMessage = ""
	t.FailedAt = nil
	return nil
}

// IsTransientFailure reports whether a failed transaction may be replayed automatically
func (t *Transaction) IsTransientFailure() bool {
	return t.Status == TransactionStatusFailed && apperrors.IsTransient(apperrors.ErrorCode(t.ErrorCode))
}

// Err rebuilds the error a failed transaction ended with.
func (t *Transaction) Err() error {
	if t.Status != TransactionStatusFailed || t.ErrorCode == "" {
		return nil
	}
	return apperrors.New(apperrors.ErrorCode(t.ErrorCode), t.ErrorMessage)
}
