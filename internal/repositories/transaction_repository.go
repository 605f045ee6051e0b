package repositories

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	err := r.db.WithContext(ctx).Create(txn).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return errors.WithStack(err)
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewTransactionNotFoundError(id)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &txn, nil
}

func (r *transactionRepository) Update(ctx context.Context, txn *models.Transaction) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND version = ?", txn.ID, txn.Version).
		Updates(map[string]interface{}{
			"status":           txn.Status,
			"reference_number": txn.ReferenceNumber,
			"retry_count":      txn.RetryCount,
			"error_code":       txn.ErrorCode,
			"error_message":    txn.ErrorMessage,
			"processed_at":     txn.ProcessedAt,
			"completed_at":     txn.CompletedAt,
			"failed_at":        txn.FailedAt,
			"cancelled_at":     txn.CancelledAt,
			"refunded_at":      txn.RefundedAt,
			"updated_at":       now,
			"version":          gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.NewConcurrentModificationError("transaction", txn.ID)
	}

	txn.Version++
	txn.UpdatedAt = now
	return nil
}

func (r *transactionRepository) ListByWallet(ctx context.Context, walletID string, offset, limit int) ([]models.Transaction, int64, error) {
	var (
		transactions []models.Transaction
		total        int64
	)

	scope := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Transaction{}).Where("wallet_id = ?", walletID)
	}
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, errors.WithStack(err)
	}

	err := scope().Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&transactions).Error
	return transactions, total, errors.WithStack(err)
}

func (r *transactionRepository) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.TransactionStatusProcessing, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, errors.WithStack(err)
}

func (r *transactionRepository) ListRetryable(ctx context.Context, codes []string, createdAfter time.Time, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND error_code IN ? AND created_at >= ? AND retry_count < max_retries",
			models.TransactionStatusFailed, codes, createdAfter).
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, errors.WithStack(err)
}

func (r *transactionRepository) Stats(ctx context.Context, filter models.TransactionStatsFilter) ([]models.TransactionStatsRow, error) {
	var rows []models.TransactionStatsRow

	query := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("type, status, currency, COUNT(*) AS count, COALESCE(SUM(ABS(amount)), 0) AS volume").
		Where("created_at >= ? AND created_at < ?", filter.From, filter.To)
	if filter.WalletID != "" {
		query = query.Where("wallet_id = ?", filter.WalletID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	err := query.Group("type, status, currency").Order("type, status, currency").Scan(&rows).Error
	return rows, errors.WithStack(err)
}
