package usecases

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/estatex/wallet-ledger/internal/utils"
	"go.uber.org/zap"
)

// sweepBatchSize bounds the rows a single sweep or recovery pass touches
const sweepBatchSize = 100

type retryUseCase struct {
	*ledgerEngine
}

// NewRetryUseCase creates a new retry use case
func NewRetryUseCase(engine *ledgerEngine) RetryUseCase {
	return &retryUseCase{ledgerEngine: engine}
}

// RetryTransaction replays a failed transaction. The retry is claimed
// (failed -> pending -> processing) in its own commit, so two concurrent
// retries of the same transaction cannot both proceed.
func (uc *retryUseCase) RetryTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	txn, err := uc.repos.Transaction.GetByID(ctx, transactionID)
	if err != nil {
		return nil, asLedgerError(err)
	}

	legs, err := uc.legsOf(ctx, txn)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	for _, leg := range legs {
		if err := leg.CheckRetry(now, uc.cfg.RetryWindow); err != nil {
			uc.metrics.ObserveRetry("rejected")
			return txn, err
		}
	}

	var claimed []*models.Transaction
	err = uc.repos.Atomic(ctx, func(r *repositories.Repositories) error {
		claimed = claimed[:0]
		for _, leg := range legs {
			current, err := r.Transaction.GetByID(ctx, leg.ID)
			if err != nil {
				return err
			}
			if err := current.PrepareRetry(now, uc.cfg.RetryWindow); err != nil {
				return err
			}
			if err := current.MarkProcessing(now); err != nil {
				return err
			}
			if err := r.Transaction.Update(ctx, current); err != nil {
				return err
			}
			claimed = append(claimed, current)
		}
		return nil
	})
	if err != nil {
		uc.metrics.ObserveRetry("rejected")
		return txn, asLedgerError(err)
	}

	for i, leg := range legs {
		*leg = *claimed[i]
		pending := *leg
		pending.Status = models.TransactionStatusPending
		uc.emit(&pending, models.TransactionStatusFailed, now)
		uc.emit(leg, models.TransactionStatusPending, now)
	}

	uc.log.Info("retrying transaction",
		zap.String("transaction_id", legs[0].ID),
		zap.Int("retry_count", legs[0].RetryCount),
	)

	if err := uc.commit(ctx, legs, uc.afterApplyFor(legs[0])); err != nil {
		uc.metrics.ObserveRetry("failed")
		return legs[0], err
	}

	uc.metrics.ObserveRetry("completed")
	return legs[0], nil
}

// SweepTransient retries recent failures whose cause may clear on its own.
// Business failures such as insufficient funds are left alone.
func (uc *retryUseCase) SweepTransient(ctx context.Context) (int, error) {
	since := uc.now().Add(-uc.cfg.RetryWindow)

	candidates, err := uc.repos.Transaction.ListRetryable(ctx, apperrors.TransientCodes(), since, sweepBatchSize)
	if err != nil {
		return 0, asLedgerError(err)
	}

	retried := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return retried, err
		}
		// incoming legs are retried together with their outgoing leg
		if candidate.Type == models.TransactionTypeTransferIn && candidate.RelatedTransactionID != "" {
			continue
		}
		if _, err := uc.RetryTransaction(ctx, candidate.ID); err != nil {
			uc.log.Warn("transient retry failed",
				zap.String("transaction_id", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		retried++
	}

	if retried > 0 {
		uc.log.Info("transient sweep finished", zap.Int("retried", retried), zap.Int("candidates", len(candidates)))
	}
	return retried, nil
}

// RecoverStuck resolves transactions left in processing by a crash between
// write-ahead and commit. A transaction whose history entry exists was
// applied and is completed; anything else is failed as orphaned and
// becomes eligible for SweepTransient.
func (uc *retryUseCase) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = uc.cfg.StuckAfter
	}
	cutoff := uc.now().Add(-olderThan)

	stuck, err := uc.repos.Transaction.ListStuck(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, asLedgerError(err)
	}

	recovered := 0
	for i := range stuck {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		ok, err := uc.resolveStuck(ctx, &stuck[i])
		if err != nil {
			uc.log.Error("failed to recover stuck transaction",
				zap.String("transaction_id", stuck[i].ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			recovered++
		}
	}
	return recovered, nil
}

func (uc *retryUseCase) resolveStuck(ctx context.Context, txn *models.Transaction) (bool, error) {
	unlock := uc.locker.Lock(txn.WalletID)
	defer unlock()

	now := uc.now()
	var resolved *models.Transaction
	err := uc.repos.Atomic(ctx, func(r *repositories.Repositories) error {
		resolved = nil
		current, err := r.Transaction.GetByID(ctx, txn.ID)
		if err != nil {
			return err
		}
		// finished while we waited for the lock
		if current.Status != models.TransactionStatusProcessing {
			return nil
		}

		applied, err := r.History.ExistsForTransaction(ctx, current.WalletID, current.ID)
		if err != nil {
			return err
		}
		if applied {
			err = current.MarkCompleted(utils.GenerateReferenceNumber(now), now)
		} else {
			err = current.MarkFailed(apperrors.ErrOrphaned, "processing was interrupted before commit", now)
		}
		if err != nil {
			return err
		}
		if err := r.Transaction.Update(ctx, current); err != nil {
			return err
		}
		resolved = current
		return nil
	})
	if err != nil || resolved == nil {
		return false, err
	}

	uc.emit(resolved, models.TransactionStatusProcessing, now)
	uc.metrics.ObserveRecovered(string(resolved.Status))
	uc.log.Warn("recovered stuck transaction",
		zap.String("transaction_id", resolved.ID),
		zap.String("status", string(resolved.Status)),
	)
	return true, nil
}
