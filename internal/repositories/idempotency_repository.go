package repositories

import (
	"context"

	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type idempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	// struct condition lets the dialect quote the reserved "key" column
	err := r.db.WithContext(ctx).Where(&models.IdempotencyRecord{Key: key}).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &record, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, record *models.IdempotencyRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return errors.WithStack(err)
}
