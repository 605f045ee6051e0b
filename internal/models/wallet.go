package models

import (
	"math"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/google/uuid"
)

// DefaultWalletType is the wallet resolved for a user when none is named.
const DefaultWalletType = "primary"

// Wallet holds a user's balance in minor units of a single currency
type Wallet struct {
	ID         string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	UserID     string       `json:"user_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_wallets_user_type"`
	WalletType string       `json:"wallet_type" gorm:"type:varchar(32);not null;default:'primary';uniqueIndex:idx_wallets_user_type"`
	Balance    int64        `json:"balance" gorm:"not null;default:0;check:balance >= 0"`
	Currency   Currency     `json:"currency" gorm:"type:varchar(3);not null"`
	Status     WalletStatus `json:"status" gorm:"type:varchar(16);not null;default:'active'"`
	Limits     WalletLimits `json:"limits" gorm:"embedded;embeddedPrefix:limit_"`
	Usage      UsageStats   `json:"usage_stats" gorm:"embedded;embeddedPrefix:usage_"`
	Version    int64        `json:"version" gorm:"not null;default:0"` // For optimistic locking
}

// WalletStatus represents the status of a wallet
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusSuspended WalletStatus = "suspended"
	WalletStatusFrozen    WalletStatus = "frozen"
	WalletStatusClosed    WalletStatus = "closed"
)

// IsValid checks if the status is a known wallet status
func (s WalletStatus) IsValid() bool {
	switch s {
	case WalletStatusActive, WalletStatusSuspended, WalletStatusFrozen, WalletStatusClosed:
		return true
	}
	return false
}

// WalletLimits bounds caller-initiated volume. Zero means unlimited.
type WalletLimits struct {
	MaxSingleTransaction int64 `json:"max_single_transaction" gorm:"not null;default:0"`
	DailyLimit           int64 `json:"daily_limit" gorm:"not null;default:0"`
	MonthlyLimit         int64 `json:"monthly_limit" gorm:"not null;default:0"`
	YearlyLimit          int64 `json:"yearly_limit" gorm:"not null;default:0"`
}

// UsageStats tracks windowed and lifetime volume in absolute minor units
type UsageStats struct {
	DailyVolume       int64      `json:"daily_volume" gorm:"not null;default:0"`
	MonthlyVolume     int64      `json:"monthly_volume" gorm:"not null;default:0"`
	YearlyVolume      int64      `json:"yearly_volume" gorm:"not null;default:0"`
	TotalTransactions int64      `json:"total_transactions" gorm:"not null;default:0"`
	TotalVolume       int64      `json:"total_volume" gorm:"not null;default:0"`
	LastTransactionAt *time.Time `json:"last_transaction_at"`
}

// TableName overrides the table name used by Wallet
func (Wallet) TableName() string {
	return "wallets"
}

// NewWallet creates an active, empty wallet
func NewWallet(userID, walletType string, currency Currency, limits WalletLimits, now time.Time) *Wallet {
	if walletType == "" {
		walletType = DefaultWalletType
	}
	return &Wallet{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
		UserID:     userID,
		WalletType: walletType,
		Currency:   currency,
		Status:     WalletStatusActive,
		Limits:     limits,
	}
}

// IsActive checks if the wallet is active
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// UsageAsOf returns the usage counters with any elapsed calendar windows reset.
func (w *Wallet) UsageAsOf(now time.Time) UsageStats {
	usage := w.Usage
	if usage.LastTransactionAt == nil {
		return usage
	}

	last := usage.LastTransactionAt.UTC()
	current := now.UTC()

	if last.Year() != current.Year() {
		usage.DailyVolume = 0
		usage.MonthlyVolume = 0
		usage.YearlyVolume = 0
		return usage
	}
	if last.Month() != current.Month() {
		usage.DailyVolume = 0
		usage.MonthlyVolume = 0
		return usage
	}
	if last.Day() != current.Day() {
		usage.DailyVolume = 0
	}
	return usage
}

// RollWindows resets the windowed counters whose period has elapsed
func (w *Wallet) RollWindows(now time.Time) {
	w.Usage = w.UsageAsOf(now)
}

// CanApply reports whether a signed delta of the given type would be
// accepted right now. It never mutates the wallet.
func (w *Wallet) CanApply(amount int64, txType TransactionType, now time.Time) error {
	if amount == 0 {
		return apperrors.NewValidationError("amount must be non-zero")
	}
	if !txType.IsValid() {
		return apperrors.NewValidationError("unknown transaction type %q", txType)
	}
	if txType.IsDebit() != (amount < 0) {
		return apperrors.NewValidationError("amount sign does not match %s", txType)
	}
	if !w.IsActive() {
		return apperrors.NewWalletInactiveError(w.ID, string(w.Status))
	}
	if amount == math.MinInt64 || (amount > 0 && w.Balance > math.MaxInt64-amount) {
		return apperrors.NewValidationError("amount overflows wallet balance")
	}

	abs := absAmount(amount)

	if !txType.SkipsLimits() {
		usage := w.UsageAsOf(now)
		if w.Limits.MaxSingleTransaction > 0 && abs > w.Limits.MaxSingleTransaction {
			return apperrors.NewLimitExceededError(apperrors.LimitSingle, w.Limits.MaxSingleTransaction, abs)
		}
		if w.Limits.DailyLimit > 0 && usage.DailyVolume+abs > w.Limits.DailyLimit {
			return apperrors.NewLimitExceededError(apperrors.LimitDaily, w.Limits.DailyLimit, usage.DailyVolume+abs)
		}
		if w.Limits.MonthlyLimit > 0 && usage.MonthlyVolume+abs > w.Limits.MonthlyLimit {
			return apperrors.NewLimitExceededError(apperrors.LimitMonthly, w.Limits.MonthlyLimit, usage.MonthlyVolume+abs)
		}
		if w.Limits.YearlyLimit > 0 && usage.YearlyVolume+abs > w.Limits.YearlyLimit {
			return apperrors.NewLimitExceededError(apperrors.LimitYearly, w.Limits.YearlyLimit, usage.YearlyVolume+abs)
		}
	}

	if amount < 0 && w.Balance < abs {
		return apperrors.NewInsufficientFundsError(w.Balance, abs)
	}

	return nil
}

// ApplyDelta is the only way a wallet balance changes. It validates the
// delta, mutates balance and usage, and returns the history entry that
// must be persisted in the same storage transaction.
func (w *Wallet) ApplyDelta(amount int64, txType TransactionType, transactionID, description string, now time.Time) (*BalanceHistoryEntry, error) {
	if err := w.CanApply(amount, txType, now); err != nil {
		return nil, err
	}

	w.RollWindows(now)
	abs := absAmount(amount)

	entry := &BalanceHistoryEntry{
		ID:              uuid.NewString(),
		WalletID:        w.ID,
		Sequence:        w.Usage.TotalTransactions + 1,
		Amount:          amount,
		PreviousBalance: w.Balance,
		NewBalance:      w.Balance + amount,
		TransactionType: txType,
		TransactionID:   transactionID,
		Description:     description,
		CreatedAt:       now,
	}

	w.Balance = entry.NewBalance
	w.Usage.DailyVolume += abs
	w.Usage.MonthlyVolume += abs
	w.Usage.YearlyVolume += abs
	w.Usage.TotalVolume += abs
	w.Usage.TotalTransactions++
	at := now
	w.Usage.LastTransactionAt = &at
	w.UpdatedAt = now

	return entry, nil
}

// ChangeStatus moves the wallet to a new status. Closed is terminal and
// only reachable with a zero balance.
func (w *Wallet) ChangeStatus(status WalletStatus) error {
	if !status.IsValid() {
		return apperrors.NewValidationError("unknown wallet status %q", status)
	}
	if w.Status == WalletStatusClosed {
		return apperrors.NewWalletInactiveError(w.ID, string(w.Status))
	}
	if status == WalletStatusClosed && w.Balance != 0 {
		return apperrors.NewValidationError("wallet %s must be empty before closing", w.ID)
	}
	w.Status = status
	return nil
}

// Validate checks the limits are well formed
func (l WalletLimits) Validate() error {
	if l.MaxSingleTransaction < 0 || l.DailyLimit < 0 || l.MonthlyLimit < 0 || l.YearlyLimit < 0 {
		return apperrors.NewValidationError("limits must not be negative")
	}
	return nil
}

func absAmount(amount int64) int64 {
	if amount < 0 {
		return -amount
	}
	return amount
}
