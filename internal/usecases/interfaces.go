package usecases

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/events"
	"github.com/estatex/wallet-ledger/internal/lock"
	"github.com/estatex/wallet-ledger/internal/metrics"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"go.uber.org/zap"
)

// WalletUseCase defines wallet lifecycle and read operations
type WalletUseCase interface {
	CreateWallet(ctx context.Context, cmd CreateWalletCommand) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	GetWalletByType(ctx context.Context, userID, walletType string) (*models.Wallet, error)
	GetWalletByID(ctx context.Context, walletID string) (*models.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]models.Wallet, error)
	GetBalanceHistory(ctx context.Context, walletID string, page, pageSize int) ([]models.BalanceHistoryEntry, int64, error)
	GetWalletStats(ctx context.Context, walletID string) (*WalletStats, error)
	UpdateWalletStatus(ctx context.Context, walletID string, status models.WalletStatus) (*models.Wallet, error)
	UpdateWalletLimits(ctx context.Context, walletID string, limits models.WalletLimits) (*models.Wallet, error)
}

// LedgerUseCase defines the balance-moving operations. On failure after
// the transaction was recorded, the failed transaction is returned
// alongside the error.
type LedgerUseCase interface {
	Deposit(ctx context.Context, cmd DepositCommand) (*models.Transaction, error)
	Withdraw(ctx context.Context, cmd WithdrawCommand) (*models.Transaction, error)
	Transfer(ctx context.Context, cmd TransferCommand) (*models.Transaction, *models.Transaction, error)
	DebitForInvestment(ctx context.Context, cmd InvestmentDebitCommand) (*models.Transaction, error)
	Refund(ctx context.Context, cmd RefundCommand) (*models.Transaction, error)
	CancelTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, walletID string, page, pageSize int) ([]models.Transaction, int64, error)
}

// RetryUseCase replays failed transactions and resolves abandoned ones
type RetryUseCase interface {
	RetryTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	SweepTransient(ctx context.Context) (int, error)
	RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error)
}

// ReconciliationUseCase defines the interface for reconciliation business logic
type ReconciliationUseCase interface {
	PerformReconciliation(ctx context.Context) ([]models.ReconciliationReport, error)
	PerformWalletReconciliation(ctx context.Context, walletID string) (*models.ReconciliationReport, error)
	GetReconciliationReports(ctx context.Context, page, pageSize int) ([]models.ReconciliationReport, error)
	GetMismatchReports(ctx context.Context, page, pageSize int) ([]models.ReconciliationReport, error)
}

// AnalyticsUseCase is a read-only projection over transactions
type AnalyticsUseCase interface {
	GetTransactionStats(ctx context.Context, filter models.TransactionStatsFilter) (*TransactionStatsReport, error)
}

// EventEmitter receives committed status transitions
type EventEmitter interface {
	Emit(event events.TransactionStatusChanged)
}

// Locker serializes work per wallet id
type Locker interface {
	Lock(keys ...string) (unlock func())
}

// Options carries the collaborators shared by the use cases
type Options struct {
	Ledger  config.LedgerConfig
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Events  EventEmitter
	Locker  Locker
	Clock   func() time.Time
}

// UseCases holds all use case interfaces
type UseCases struct {
	Wallet         WalletUseCase
	Ledger         LedgerUseCase
	Retry          RetryUseCase
	Reconciliation ReconciliationUseCase
	Analytics      AnalyticsUseCase
}

// NewUseCases creates a new instance of all use cases
func NewUseCases(repos *repositories.Repositories, opts Options) *UseCases {
	engine := newLedgerEngine(repos, opts)

	return &UseCases{
		Wallet:         NewWalletUseCase(engine),
		Ledger:         NewLedgerUseCase(engine),
		Retry:          NewRetryUseCase(engine),
		Reconciliation: NewReconciliationUseCase(engine),
		Analytics:      NewAnalyticsUseCase(engine),
	}
}

type discardEmitter struct{}

func (discardEmitter) Emit(events.TransactionStatusChanged) {}

func withDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Events == nil {
		opts.Events = discardEmitter{}
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewKeyedMutex()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Ledger.MaxRetries <= 0 {
		opts.Ledger.MaxRetries = models.DefaultMaxRetries
	}
	if opts.Ledger.RetryWindow <= 0 {
		opts.Ledger.RetryWindow = 24 * time.Hour
	}
	if opts.Ledger.CommitTimeout <= 0 {
		opts.Ledger.CommitTimeout = 10 * time.Second
	}
	if opts.Ledger.StuckAfter <= 0 {
		opts.Ledger.StuckAfter = 5 * time.Minute
	}
	return opts
}
