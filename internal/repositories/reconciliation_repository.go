package repositories

import (
	"context"

	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type reconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository creates a new reconciliation repository
func NewReconciliationRepository(db *gorm.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) Create(ctx context.Context, report *models.ReconciliationReport) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(report).Error)
}

func (r *reconciliationRepository) GetByWalletID(ctx context.Context, walletID string) ([]models.ReconciliationReport, error) {
	var reports []models.ReconciliationReport
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Find(&reports).Error
	return reports, errors.WithStack(err)
}

func (r *reconciliationRepository) List(ctx context.Context, offset, limit int) ([]models.ReconciliationReport, error) {
	var reports []models.ReconciliationReport
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reports).Error
	return reports, errors.WithStack(err)
}

func (r *reconciliationRepository) GetMismatches(ctx context.Context, offset, limit int) ([]models.ReconciliationReport, error) {
	var reports []models.ReconciliationReport
	err := r.db.WithContext(ctx).
		Where("status <> ?", models.ReconciliationStatusMatch).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reports).Error
	return reports, errors.WithStack(err)
}
