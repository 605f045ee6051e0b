package repositories

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert collides with a unique key
var ErrDuplicateKey = errors.New("duplicate key")

// WalletRepository defines the interface for wallet data operations
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByID(ctx context.Context, id string) (*models.Wallet, error)
	GetByUserAndType(ctx context.Context, userID, walletType string) (*models.Wallet, error)
	ListByUser(ctx context.Context, userID string) ([]models.Wallet, error)
	// Update persists the wallet if its version is unchanged, then bumps wallet.Version.
	Update(ctx context.Context, wallet *models.Wallet) error
	GetAllForReconciliation(ctx context.Context) ([]models.Wallet, error)
}

// TransactionRepository defines the interface for transaction data operations
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	// Update persists the transaction if its version is unchanged, then bumps txn.Version.
	Update(ctx context.Context, txn *models.Transaction) error
	ListByWallet(ctx context.Context, walletID string, offset, limit int) ([]models.Transaction, int64, error)
	ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Transaction, error)
	ListRetryable(ctx context.Context, codes []string, createdAfter time.Time, limit int) ([]models.Transaction, error)
	Stats(ctx context.Context, filter models.TransactionStatsFilter) ([]models.TransactionStatsRow, error)
}

// BalanceHistoryRepository is append-only; entries are never updated or deleted.
type BalanceHistoryRepository interface {
	Append(ctx context.Context, entry *models.BalanceHistoryEntry) error
	ListByWallet(ctx context.Context, walletID string, offset, limit int) ([]models.BalanceHistoryEntry, int64, error)
	ListAllByWallet(ctx context.Context, walletID string) ([]models.BalanceHistoryEntry, error)
	ExistsForTransaction(ctx context.Context, walletID, transactionID string) (bool, error)
}

// IdempotencyRepository stores client idempotency keys
type IdempotencyRepository interface {
	// Get returns nil, nil when the key is unknown.
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Create(ctx context.Context, record *models.IdempotencyRecord) error
}

// ReconciliationRepository defines the interface for reconciliation operations
type ReconciliationRepository interface {
	Create(ctx context.Context, report *models.ReconciliationReport) error
	GetByWalletID(ctx context.Context, walletID string) ([]models.ReconciliationReport, error)
	List(ctx context.Context, offset, limit int) ([]models.ReconciliationReport, error)
	GetMismatches(ctx context.Context, offset, limit int) ([]models.ReconciliationReport, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Wallet         WalletRepository
	Transaction    TransactionRepository
	History        BalanceHistoryRepository
	Idempotency    IdempotencyRepository
	Reconciliation ReconciliationRepository
	DB             *gorm.DB

	atomic func(ctx context.Context, fn func(*Repositories) error) error
}

// Atomic runs fn against repositories bound to a single storage
// transaction. Any error returned by fn rolls every write back.
func (r *Repositories) Atomic(ctx context.Context, fn func(*Repositories) error) error {
	return r.atomic(ctx, fn)
}

// NewRepositories creates gorm-backed repositories
func NewRepositories(db *gorm.DB) *Repositories {
	repos := &Repositories{
		Wallet:         NewWalletRepository(db),
		Transaction:    NewTransactionRepository(db),
		History:        NewBalanceHistoryRepository(db),
		Idempotency:    NewIdempotencyRepository(db),
		Reconciliation: NewReconciliationRepository(db),
		DB:             db,
	}
	repos.atomic = func(ctx context.Context, fn func(*Repositories) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(NewRepositories(tx))
		})
	}
	return repos
}
