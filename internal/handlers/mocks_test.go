package handlers

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/stretchr/testify/mock"
)

func walletArg(args mock.Arguments, i int) *models.Wallet {
	wallet, _ := args.Get(i).(*models.Wallet)
	return wallet
}

func transactionArg(args mock.Arguments, i int) *models.Transaction {
	txn, _ := args.Get(i).(*models.Transaction)
	return txn
}

// MockWalletUseCase is a mock implementation of WalletUseCase for testing
type MockWalletUseCase struct {
	mock.Mock
}

func (m *MockWalletUseCase) CreateWallet(ctx context.Context, cmd usecases.CreateWalletCommand) (*models.Wallet, error) {
	args := m.Called(ctx, cmd)
	return walletArg(args, 0), args.Error(1)
}

func (m *MockWalletUseCase) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	return walletArg(args, 0), args.Error(1)
}

func (m *MockWalletUseCase) GetWalletByType(ctx context.Context, userID, walletType string) (*models.Wallet, error) {
	args := m.Called(ctx, userID, walletType)
	return walletArg(args, 0), args.Error(1)
}

func (m *MockWalletUseCase) GetWalletByID(ctx context.Context, walletID string) (*models.Wallet, error) {
	args := m.Called(ctx, walletID)
	return walletArg(args, 0), args.Error(1)
}

func (m *MockWalletUseCase) ListWallets(ctx context.Context, userID string) ([]models.Wallet, error) {
	args := m.Called(ctx, userID)
	wallets, _ := args.Get(0).([]models.Wallet)
	return wallets, args.Error(1)
}

func (m *MockWalletUseCase) GetBalanceHistory(ctx context.Context, walletID string, page, pageSize int) ([]models.BalanceHistoryEntry, int64, error) {
	args := m.Called(ctx, walletID, page, pageSize)
	entries, _ := args.Get(0).([]models.BalanceHistoryEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletUseCase) GetWalletStats(ctx context.Context, walletID string) (*usecases.WalletStats, error) {
	args := m.Called(ctx, walletID)
	stats, _ := args.Get(0).(*usecases.WalletStats)
	return stats, args.Error(1)
}

func (m *MockWalletUseCase) UpdateWalletStatus(ctx context.Context, walletID string, status models.WalletStatus) (*models.Wallet, error) {
	args := m.Called(ctx, walletID, status)
	return walletArg(args, 0), args.Error(1)
}

func (m *MockWalletUseCase) UpdateWalletLimits(ctx context.Context, walletID string, limits models.WalletLimits) (*models.Wallet, error) {
	args := m.Called(ctx, walletID, limits)
	return walletArg(args, 0), args.Error(1)
}

// MockLedgerUseCase is a mock implementation of LedgerUseCase for testing
type MockLedgerUseCase struct {
	mock.Mock
}

func (m *MockLedgerUseCase) Deposit(ctx context.Context, cmd usecases.DepositCommand) (*models.Transaction, error) {
	args := m.Called(ctx, cmd)
	return transactionArg(args, 0), args.Error(1)
}

func (m *MockLedgerUseCase) Withdraw(ctx context.Context, cmd usecases.WithdrawCommand) (*models.Transaction, error) {
	args := m.Called(ctx, cmd)
	return transactionArg(args, 0), args.Error(1)
}

func (m *MockLedgerUseCase) Transfer(ctx context.Context, cmd usecases.TransferCommand) (*models.Transaction, *models.Transaction, error) {
	args := m.Called(ctx, cmd)
	return transactionArg(args, 0), transactionArg(args, 1), args.Error(2)
}

func (m *MockLedgerUseCase) DebitForInvestment(ctx context.Context, cmd usecases.InvestmentDebitCommand) (*models.Transaction, error) {
	args := m.Called(ctx, cmd)
	return transactionArg(args, 0), args.Error(1)
}

func (m *MockLedgerUseCase) Refund(ctx context.Context, cmd usecases.RefundCommand) (*models.Transaction, error) {
	args := m.Called(ctx, cmd)
	return transactionArg(args, 0), args.Error(1)
}

func (m *MockLedgerUseCase) CancelTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	return transactionArg(args, 0), args.Error(1)
}

func (m *MockLedgerUseCase) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	return transactionArg(args, 0), args.Error(1)
}

func (m *MockLedgerUseCase) ListTransactions(ctx context.Context, walletID string, page, pageSize int) ([]models.Transaction, int64, error) {
	args := m.Called(ctx, walletID, page, pageSize)
	transactions, _ := args.Get(0).([]models.Transaction)
	return transactions, args.Get(1).(int64), args.Error(2)
}

// MockRetryUseCase is a mock implementation of RetryUseCase for testing
type MockRetryUseCase struct {
	mock.Mock
}

func (m *MockRetryUseCase) RetryTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	return transactionArg(args, 0), args.Error(1)
}

func (m *MockRetryUseCase) SweepTransient(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRetryUseCase) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

// MockReconciliationUseCase is a mock implementation of ReconciliationUseCase for testing
type MockReconciliationUseCase struct {
	mock.Mock
}

func (m *MockReconciliationUseCase) PerformReconciliation(ctx context.Context) ([]models.ReconciliationReport, error) {
	args := m.Called(ctx)
	reports, _ := args.Get(0).([]models.ReconciliationReport)
	return reports, args.Error(1)
}

func (m *MockReconciliationUseCase) PerformWalletReconciliation(ctx context.Context, walletID string) (*models.ReconciliationReport, error) {
	args := m.Called(ctx, walletID)
	report, _ := args.Get(0).(*models.ReconciliationReport)
	return report, args.Error(1)
}

func (m *MockReconciliationUseCase) GetReconciliationReports(ctx context.Context, page, pageSize int) ([]models.ReconciliationReport, error) {
	args := m.Called(ctx, page, pageSize)
	reports, _ := args.Get(0).([]models.ReconciliationReport)
	return reports, args.Error(1)
}

func (m *MockReconciliationUseCase) GetMismatchReports(ctx context.Context, page, pageSize int) ([]models.ReconciliationReport, error) {
	args := m.Called(ctx, page, pageSize)
	reports, _ := args.Get(0).([]models.ReconciliationReport)
	return reports, args.Error(1)
}

// MockAnalyticsUseCase is a mock implementation of AnalyticsUseCase for testing
type MockAnalyticsUseCase struct {
	mock.Mock
}

func (m *MockAnalyticsUseCase) GetTransactionStats(ctx context.Context, filter models.TransactionStatsFilter) (*usecases.TransactionStatsReport, error) {
	args := m.Called(ctx, filter)
	report, _ := args.Get(0).(*usecases.TransactionStatsReport)
	return report, args.Error(1)
}
