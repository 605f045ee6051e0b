package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// reconcileConcurrency bounds how many wallets are checked at once
const reconcileConcurrency = 4

type reconciliationUseCase struct {
	*ledgerEngine
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(engine *ledgerEngine) ReconciliationUseCase {
	return &reconciliationUseCase{ledgerEngine: engine}
}

func (uc *reconciliationUseCase) PerformReconciliation(ctx context.Context) ([]models.ReconciliationReport, error) {
	// Get all wallets for reconciliation
	wallets, err := uc.repos.Wallet.GetAllForReconciliation(ctx)
	if err != nil {
		return nil, asLedgerError(err)
	}

	results := make([]*models.ReconciliationReport, len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for i := range wallets {
		i := i
		g.Go(func() error {
			report, err := uc.performWalletReconciliation(gctx, wallets[i].ID)
			if err != nil {
				// Log error but continue with other wallets
				uc.log.Error("wallet reconciliation failed", zap.String("wallet_id", wallets[i].ID), zap.Error(err))
				return nil
			}
			results[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reports := make([]models.ReconciliationReport, 0, len(results))
	issues := 0
	for _, report := range results {
		if report == nil {
			continue
		}
		if report.HasAnyIssue() {
			issues++
		}
		reports = append(reports, *report)
	}

	uc.log.Info("reconciliation finished",
		zap.Int("wallets", len(wallets)),
		zap.Int("reports", len(reports)),
		zap.Int("issues", issues),
	)
	return reports, nil
}

func (uc *reconciliationUseCase) PerformWalletReconciliation(ctx context.Context, walletID string) (*models.ReconciliationReport, error) {
	return uc.performWalletReconciliation(ctx, walletID)
}

// performWalletReconciliation replays the balance history and compares the
// result with the stored balance. A history whose entries do not chain is
// reported as broken even when the totals agree.
func (uc *reconciliationUseCase) performWalletReconciliation(ctx context.Context, walletID string) (*models.ReconciliationReport, error) {
	wallet, entries, err := uc.snapshot(ctx, walletID)
	if err != nil {
		return nil, err
	}

	var (
		calculated int64
		previous   int64
		breaks     []string
	)
	for i, entry := range entries {
		expected := int64(i + 1)
		if entry.Sequence != expected {
			breaks = append(breaks, fmt.Sprintf("sequence %d found where %d expected", entry.Sequence, expected))
		}
		if entry.PreviousBalance != previous {
			breaks = append(breaks, fmt.Sprintf("entry %d starts at %d, previous entry ended at %d", entry.Sequence, entry.PreviousBalance, previous))
		}
		if !entry.IsConsistent() {
			breaks = append(breaks, fmt.Sprintf("entry %d does not add up", entry.Sequence))
		}
		calculated += entry.Amount
		previous = entry.NewBalance
	}

	difference := wallet.Balance - calculated

	status := models.ReconciliationStatusMatch
	notes := "Balance matches"
	switch {
	case len(breaks) > 0:
		status = models.ReconciliationStatusChainBroken
		notes = "History chain broken: " + strings.Join(breaks, "; ")
	case difference != 0:
		status = models.ReconciliationStatusMismatch
		notes = fmt.Sprintf("Balance mismatch detected. Difference: %s", wallet.Currency.Format(difference))
	}

	report := &models.ReconciliationReport{
		ID:                uuid.NewString(),
		CreatedAt:         uc.now(),
		WalletID:          walletID,
		StoredBalance:     wallet.Balance,
		CalculatedBalance: calculated,
		Difference:        difference,
		HistoryEntries:    int64(len(entries)),
		Status:            status,
		Notes:             notes,
	}

	// Save the report
	if err := uc.repos.Reconciliation.Create(ctx, report); err != nil {
		return nil, asLedgerError(err)
	}

	uc.metrics.ObserveReconciliation(string(report.Status))
	if report.HasAnyIssue() {
		uc.log.Warn("reconciliation issue",
			zap.String("wallet_id", walletID),
			zap.String("status", string(report.Status)),
			zap.String("severity", report.GetSeverity()),
			zap.Int64("difference", difference),
		)
	}

	return report, nil
}

// snapshot reads a wallet and its history while money movement on the
// wallet waits, so a commit cannot land between the two reads.
func (uc *reconciliationUseCase) snapshot(ctx context.Context, walletID string) (*models.Wallet, []models.BalanceHistoryEntry, error) {
	unlock := uc.locker.Lock(walletID)
	defer unlock()

	wallet, err := uc.repos.Wallet.GetByID(ctx, walletID)
	if err != nil {
		return nil, nil, asLedgerError(err)
	}

	entries, err := uc.repos.History.ListAllByWallet(ctx, walletID)
	if err != nil {
		return nil, nil, asLedgerError(err)
	}
	return wallet, entries, nil
}

func (uc *reconciliationUseCase) GetReconciliationReports(ctx context.Context, page, pageSize int) ([]models.ReconciliationReport, error) {
	_, limit, offset := utils.Paginate(page, pageSize)
	reports, err := uc.repos.Reconciliation.List(ctx, offset, limit)
	if err != nil {
		return nil, asLedgerError(err)
	}
	return reports, nil
}

func (uc *reconciliationUseCase) GetMismatchReports(ctx context.Context, page, pageSize int) ([]models.ReconciliationReport, error) {
	_, limit, offset := utils.Paginate(page, pageSize)
	reports, err := uc.repos.Reconciliation.GetMismatches(ctx, offset, limit)
	if err != nil {
		return nil, asLedgerError(err)
	}
	return reports, nil
}
