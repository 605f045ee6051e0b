package models

import "time"

// BalanceHistoryEntry is one immutable line of a wallet's ledger.
// Sequence starts at 1 and follows commit order.
type BalanceHistoryEntry struct {
	ID              string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	WalletID        string          `json:"wallet_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_history_wallet_sequence"`
	Sequence        int64           `json:"sequence" gorm:"not null;uniqueIndex:idx_history_wallet_sequence"`
	Amount          int64           `json:"amount" gorm:"not null"`
	PreviousBalance int64           `json:"previous_balance" gorm:"not null"`
	NewBalance      int64           `json:"new_balance" gorm:"not null"`
	TransactionType TransactionType `json:"transaction_type" gorm:"type:varchar(32);not null"`
	TransactionID   string          `json:"transaction_id" gorm:"type:varchar(36);not null;index"`
	Description     string          `json:"description" gorm:"type:varchar(255)"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName overrides the table name used by BalanceHistoryEntry
func (BalanceHistoryEntry) TableName() string {
	return "balance_history"
}

// IsConsistent checks new = previous + amount
func (e *BalanceHistoryEntry) IsConsistent() bool {
	return e.NewBalance == e.PreviousBalance+e.Amount
}
