package scheduler

import (
	"context"

	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"go.uber.org/zap"
)

// RegisterLedgerJobs adds the retry sweep, stuck-transaction recovery and
// periodic reconciliation.
func RegisterLedgerJobs(s *Scheduler, useCases *usecases.UseCases, cfg *config.Config) {
	log := s.log

	s.AddTask("retry-sweep", cfg.Scheduler.RetrySweepInterval, func(ctx context.Context) error {
		retried, err := useCases.Retry.SweepTransient(ctx)
		if retried > 0 {
			log.Info("retried transient failures", zap.Int("count", retried))
		}
		return err
	})

	s.AddTask("recover-stuck", cfg.Scheduler.RecoverInterval, func(ctx context.Context) error {
		recovered, err := useCases.Retry.RecoverStuck(ctx, cfg.Ledger.StuckAfter)
		if recovered > 0 {
			log.Warn("recovered stuck transactions", zap.Int("count", recovered))
		}
		return err
	})

	s.AddTask("reconciliation", cfg.Scheduler.ReconcileInterval, func(ctx context.Context) error {
		reports, err := useCases.Reconciliation.PerformReconciliation(ctx)
		if err != nil {
			return err
		}
		issues := 0
		for i := range reports {
			if reports[i].HasAnyIssue() {
				issues++
			}
		}
		log.Info("reconciliation finished", zap.Int("wallets", len(reports)), zap.Int("issues", issues))
		return nil
	})
}
