package repositories

import (
	"context"

	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type balanceHistoryRepository struct {
	db *gorm.DB
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *gorm.DB) BalanceHistoryRepository {
	return &balanceHistoryRepository{db: db}
}

func (r *balanceHistoryRepository) Append(ctx context.Context, entry *models.BalanceHistoryEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return errors.WithStack(err)
}

func (r *balanceHistoryRepository) ListByWallet(ctx context.Context, walletID string, offset, limit int) ([]models.BalanceHistoryEntry, int64, error) {
	var (
		entries []models.BalanceHistoryEntry
		total   int64
	)

	scope := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.BalanceHistoryEntry{}).Where("wallet_id = ?", walletID)
	}
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, errors.WithStack(err)
	}

	err := scope().Order("sequence DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, errors.WithStack(err)
}

func (r *balanceHistoryRepository) ListAllByWallet(ctx context.Context, walletID string) ([]models.BalanceHistoryEntry, error) {
	var entries []models.BalanceHistoryEntry
	err := r.db.WithContext(ctx).Where("wallet_id = ?", walletID).Order("sequence ASC").Find(&entries).Error
	return entries, errors.WithStack(err)
}

func (r *balanceHistoryRepository) ExistsForTransaction(ctx context.Context, walletID, transactionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BalanceHistoryEntry{}).
		Where("wallet_id = ? AND transaction_id = ?", walletID, transactionID).
		Count(&count).Error
	if err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}
