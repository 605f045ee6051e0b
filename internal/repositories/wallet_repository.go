package repositories

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	err := r.db.WithContext(ctx).Create(wallet).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.NewDuplicateWalletError(wallet.UserID, wallet.WalletType)
	}
	return errors.WithStack(err)
}

func (r *walletRepository) GetByID(ctx context.Context, id string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewWalletNotFoundError(id)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserAndType(ctx context.Context, userID, walletType string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND wallet_type = ?", userID, walletType).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.ErrWalletNotFound, "no "+walletType+" wallet for user "+userID)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &wallet, nil
}

func (r *walletRepository) ListByUser(ctx context.Context, userID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&wallets).Error
	return wallets, errors.WithStack(err)
}

func (r *walletRepository) Update(ctx context.Context, wallet *models.Wallet) error {
	now := time.Now()
	// Optimistic locking: update only if version matches
	result := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]interface{}{
			"balance":                      wallet.Balance,
			"status":                       wallet.Status,
			"limit_max_single_transaction": wallet.Limits.MaxSingleTransaction,
			"limit_daily_limit":            wallet.Limits.DailyLimit,
			"limit_monthly_limit":          wallet.Limits.MonthlyLimit,
			"limit_yearly_limit":           wallet.Limits.YearlyLimit,
			"usage_daily_volume":           wallet.Usage.DailyVolume,
			"usage_monthly_volume":         wallet.Usage.MonthlyVolume,
			"usage_yearly_volume":          wallet.Usage.YearlyVolume,
			"usage_total_transactions":     wallet.Usage.TotalTransactions,
			"usage_total_volume":           wallet.Usage.TotalVolume,
			"usage_last_transaction_at":    wallet.Usage.LastTransactionAt,
			"updated_at":                   now,
			"version":                      gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.NewConcurrentModificationError("wallet", wallet.ID)
	}

	wallet.Version++
	wallet.UpdatedAt = now
	return nil
}

func (r *walletRepository) GetAllForReconciliation(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.db.WithContext(ctx).Order("id ASC").Find(&wallets).Error
	return wallets, errors.WithStack(err)
}
