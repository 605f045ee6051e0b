package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationUseCase_PerformWalletReconciliation(t *testing.T) {
	ctx := context.Background()

	t.Run("should create reconciliation report for matching balance", func(t *testing.T) {
		env := newTestEnv(t, config.LedgerConfig{})
		wallet := env.createWallet(t, "user-1")
		env.fund(t, wallet.ID, 10_000)
		_, err := env.uc.Ledger.Withdraw(ctx, WithdrawCommand{WalletID: wallet.ID, Amount: 2_500})
		require.NoError(t, err)

		report, err := env.uc.Reconciliation.PerformWalletReconciliation(ctx, wallet.ID)
		require.NoError(t, err)

		assert.NotEmpty(t, report.ID)
		assert.Equal(t, models.ReconciliationStatusMatch, report.Status)
		assert.Equal(t, int64(7_500), report.StoredBalance)
		assert.Equal(t, int64(7_500), report.CalculatedBalance)
		assert.Zero(t, report.Difference)
		assert.Equal(t, int64(2), report.HistoryEntries)
		assert.Equal(t, "Balance matches", report.Notes)
		assert.Equal(t, "INFO", report.GetSeverity())
	})

	t.Run("should detect balance mismatch", func(t *testing.T) {
		env := newTestEnv(t, config.LedgerConfig{})
		wallet := env.createWallet(t, "user-1")
		env.fund(t, wallet.ID, 10_000)

		// drift the stored balance behind the ledger's back
		stored, err := env.repos.Wallet.GetByID(ctx, wallet.ID)
		require.NoError(t, err)
		stored.Balance += 150
		require.NoError(t, env.repos.Wallet.Update(ctx, stored))

		report, err := env.uc.Reconciliation.PerformWalletReconciliation(ctx, wallet.ID)
		require.NoError(t, err)

		assert.True(t, report.HasMismatch())
		assert.Equal(t, int64(150), report.Difference)
		assert.Contains(t, report.Notes, "150")
		assert.Equal(t, "WARNING", report.GetSeverity())
	})

	t.Run("should detect a broken history chain", func(t *testing.T) {
		env := newTestEnv(t, config.LedgerConfig{})
		wallet := env.createWallet(t, "user-1")
		env.fund(t, wallet.ID, 10_000)

		require.NoError(t, env.repos.History.Append(ctx, &models.BalanceHistoryEntry{
			ID:              "forged",
			WalletID:        wallet.ID,
			Sequence:        3,
			Amount:          0,
			PreviousBalance: 10_000,
			NewBalance:      10_000,
			TransactionType: models.TransactionTypeDeposit,
			CreatedAt:       testStart,
		}))

		report, err := env.uc.Reconciliation.PerformWalletReconciliation(ctx, wallet.ID)
		require.NoError(t, err)

		assert.Equal(t, models.ReconciliationStatusChainBroken, report.Status)
		assert.Contains(t, report.Notes, "sequence 3 found where 2 expected")
		assert.Equal(t, "CRITICAL", report.GetSeverity())
	})

	t.Run("should report unknown wallet", func(t *testing.T) {
		env := newTestEnv(t, config.LedgerConfig{})

		_, err := env.uc.Reconciliation.PerformWalletReconciliation(ctx, "missing")
		assert.True(t, apperrors.Is(err, apperrors.ErrWalletNotFound))
	})
}

// racingHistory lets a test act between a caller's wallet read and its
// history read.
type racingHistory struct {
	repositories.BalanceHistoryRepository
	once   sync.Once
	before func()
}

func (r *racingHistory) ListAllByWallet(ctx context.Context, walletID string) ([]models.BalanceHistoryEntry, error) {
	r.once.Do(r.before)
	return r.BalanceHistoryRepository.ListAllByWallet(ctx, walletID)
}

func TestReconciliationUseCase_DepositDuringReconciliation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.LedgerConfig{})
	wallet := env.createWallet(t, "user-1")
	env.fund(t, wallet.ID, 1_000)

	deposited := make(chan error, 1)
	history := env.repos.History
	env.repos.History = &racingHistory{
		BalanceHistoryRepository: history,
		before: func() {
			go func() {
				_, err := env.uc.Ledger.Deposit(context.Background(), DepositCommand{WalletID: wallet.ID, Amount: 500})
				deposited <- err
			}()
			// give the deposit every chance to commit before history is read
			select {
			case err := <-deposited:
				deposited <- err
			case <-time.After(100 * time.Millisecond):
			}
		},
	}

	report, err := env.uc.Reconciliation.PerformWalletReconciliation(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationStatusMatch, report.Status, report.Notes)
	assert.Equal(t, int64(1_000), report.StoredBalance)
	assert.Equal(t, int64(1_000), report.CalculatedBalance)
	assert.Equal(t, int64(1), report.HistoryEntries)

	require.NoError(t, <-deposited)
	env.repos.History = history

	report, err = env.uc.Reconciliation.PerformWalletReconciliation(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationStatusMatch, report.Status)
	assert.Equal(t, int64(1_500), report.StoredBalance)
	assert.Equal(t, int64(2), report.HistoryEntries)
	env.assertConserved(t, wallet.ID)
}

func TestReconciliationUseCase_PerformReconciliation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.LedgerConfig{})

	var drifted string
	for i, user := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		wallet := env.createWallet(t, user)
		env.fund(t, wallet.ID, int64(1_000*(i+1)))
		if i == 2 {
			drifted = wallet.ID
		}
	}

	stored, err := env.repos.Wallet.GetByID(ctx, drifted)
	require.NoError(t, err)
	stored.Balance -= 1
	require.NoError(t, env.repos.Wallet.Update(ctx, stored))

	reports, err := env.uc.Reconciliation.PerformReconciliation(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 6)

	mismatches, err := env.uc.Reconciliation.GetMismatchReports(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, drifted, mismatches[0].WalletID)
	assert.Equal(t, int64(-1), mismatches[0].Difference)

	all, err := env.uc.Reconciliation.GetReconciliationReports(ctx, 1, 4)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestAnalyticsUseCase_GetTransactionStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.LedgerConfig{})
	alice := env.createWallet(t, "alice")
	env.createWallet(t, "bob")

	env.fund(t, alice.ID, 10_000)
	env.fund(t, alice.ID, 5_000)
	_, err := env.uc.Ledger.Withdraw(ctx, WithdrawCommand{WalletID: alice.ID, Amount: 2_000})
	require.NoError(t, err)
	_, _, err = env.uc.Ledger.Transfer(ctx, TransferCommand{FromWalletID: alice.ID, ToUserID: "bob", Amount: 1_000})
	require.NoError(t, err)
	failDeposit(t, env, alice.ID, 700)

	env.clock.Advance(time.Minute)

	t.Run("should aggregate by type and status", func(t *testing.T) {
		report, err := env.uc.Analytics.GetTransactionStats(ctx, models.TransactionStatsFilter{})
		require.NoError(t, err)

		assert.Equal(t, int64(6), report.TotalCount)
		assert.Equal(t, int64(3), report.ByType[models.TransactionTypeDeposit])
		assert.Equal(t, int64(5), report.ByStatus[models.TransactionStatusCompleted])
		assert.Equal(t, int64(1), report.ByStatus[models.TransactionStatusFailed])
		assert.Equal(t, int64(10_000+5_000+2_000+1_000+1_000), report.Completed[models.CurrencyIRR])
		assert.InDelta(t, 5.0/6.0, report.SuccessRate, 0.0001)
		assert.Equal(t, env.clock.Now().Add(-defaultStatsRange), report.From)
	})

	t.Run("should filter by wallet", func(t *testing.T) {
		report, err := env.uc.Analytics.GetTransactionStats(ctx, models.TransactionStatsFilter{WalletID: alice.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(5), report.TotalCount)
		assert.Zero(t, report.ByType[models.TransactionTypeTransferIn])
	})

	t.Run("should reject an inverted range", func(t *testing.T) {
		_, err := env.uc.Analytics.GetTransactionStats(ctx, models.TransactionStatsFilter{
			From: testStart,
			To:   testStart.Add(-time.Hour),
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	})
}
