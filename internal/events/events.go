package events

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/models"
)

// TransactionStatusChanged is emitted after every committed lifecycle transition
type TransactionStatusChanged struct {
	EventType       string    `json:"event_type"` // transaction.<status>
	TransactionID   string    `json:"transaction_id"`
	WalletID        string    `json:"wallet_id"`
	UserID          string    `json:"user_id"`
	Type            string    `json:"transaction_type"`
	Status          string    `json:"status"`
	PreviousStatus  string    `json:"previous_status,omitempty"`
	Amount          int64     `json:"amount"` // signed minor units
	Currency        string    `json:"currency"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewTransactionStatusChanged snapshots txn after a transition from previous
func NewTransactionStatusChanged(txn *models.Transaction, previous models.TransactionStatus, at time.Time) TransactionStatusChanged {
	event := TransactionStatusChanged{
		EventType:      "transaction." + string(txn.Status),
		TransactionID:  txn.ID,
		WalletID:       txn.WalletID,
		UserID:         txn.UserID,
		Type:           string(txn.Type),
		Status:         string(txn.Status),
		PreviousStatus: string(previous),
		Amount:         txn.Amount,
		Currency:       string(txn.Currency),
		ErrorCode:      txn.ErrorCode,
		OccurredAt:     at,
	}
	if txn.ReferenceNumber != nil {
		event.ReferenceNumber = *txn.ReferenceNumber
	}
	return event
}

// Publisher delivers events to an external sink
type Publisher interface {
	Publish(ctx context.Context, event TransactionStatusChanged) error
	Close() error
}
