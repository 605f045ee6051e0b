package models

import "time"

// TransactionStatsFilter selects the transactions an analytics query covers
type TransactionStatsFilter struct {
	From     time.Time
	To       time.Time
	WalletID string
	UserID   string
}

// TransactionStatsRow is one (type, status, currency) bucket
type TransactionStatsRow struct {
	Type     TransactionType   `json:"type" gorm:"column:type"`
	Status   TransactionStatus `json:"status" gorm:"column:status"`
	Currency Currency          `json:"currency" gorm:"column:currency"`
	Count    int64             `json:"count" gorm:"column:count"`
	Volume   int64             `json:"volume" gorm:"column:volume"`
}
