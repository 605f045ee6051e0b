package models

import (
	"time"
)

// ReconciliationReport compares a wallet's stored balance with its history
type ReconciliationReport struct {
	ID                string               `json:"id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt         time.Time            `json:"created_at"`
	WalletID          string               `json:"wallet_id" gorm:"type:varchar(36);not null;index"`
	StoredBalance     int64                `json:"stored_balance" gorm:"not null"`
	CalculatedBalance int64                `json:"calculated_balance" gorm:"not null"`
	Difference        int64                `json:"difference" gorm:"not null"`
	HistoryEntries    int64                `json:"history_entries" gorm:"not null"`
	Status            ReconciliationStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Notes             string               `json:"notes" gorm:"type:text"`
}

// ReconciliationStatus represents the status of a reconciliation
type ReconciliationStatus string

const (
	ReconciliationStatusMatch    ReconciliationStatus = "MATCH"
	ReconciliationStatusMismatch ReconciliationStatus = "MISMATCH"
	// History entries do not chain (gap in sequence or new != previous + amount)
	ReconciliationStatusChainBroken ReconciliationStatus = "CHAIN_BROKEN"
)

// TableName overrides the table name used by ReconciliationReport
func (ReconciliationReport) TableName() string {
	return "reconciliation_reports"
}

// HasMismatch checks if there's a balance mismatch
func (r *ReconciliationReport) HasMismatch() bool {
	return r.Status == ReconciliationStatusMismatch
}

// HasAnyIssue checks if there's any reconciliation issue
func (r *ReconciliationReport) HasAnyIssue() bool {
	return r.Status != ReconciliationStatusMatch
}

// GetSeverity returns the severity level of the reconciliation issue
func (r *ReconciliationReport) GetSeverity() string {
	switch r.Status {
	case ReconciliationStatusMatch:
		return "INFO"
	case ReconciliationStatusMismatch:
		return "WARNING"
	case ReconciliationStatusChainBroken:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}
