package usecases

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/events"
	"github.com/estatex/wallet-ledger/internal/metrics"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/estatex/wallet-ledger/internal/utils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ledgerEngine owns the write path shared by every balance-moving
// operation: write-ahead, per-wallet locking, the atomic apply and the
// failure bookkeeping.
type ledgerEngine struct {
	repos   *repositories.Repositories
	cfg     config.LedgerConfig
	log     *zap.Logger
	metrics *metrics.Metrics
	events  EventEmitter
	locker  Locker
	now     func() time.Time
}

// afterApplyFunc runs inside the apply transaction once every leg is
// applied. Transactions it moves are reported through changed and
// announced after commit.
type afterApplyFunc func(ctx context.Context, r *repositories.Repositories, now time.Time, changed func(*models.Transaction, models.TransactionStatus)) error

type statusChange struct {
	txn      *models.Transaction
	previous models.TransactionStatus
}

// posting is one request to move money: one leg, or two for a transfer
type posting struct {
	operation   string
	idemKey     string
	requestHash string
	legs        []*models.Transaction
	afterApply  afterApplyFunc
}

func newLedgerEngine(repos *repositories.Repositories, opts Options) *ledgerEngine {
	opts = withDefaults(opts)
	return &ledgerEngine{
		repos:   repos,
		cfg:     opts.Ledger,
		log:     opts.Logger,
		metrics: opts.Metrics,
		events:  opts.Events,
		locker:  opts.Locker,
		now:     opts.Clock,
	}
}

func (e *ledgerEngine) newTransaction(wallet *models.Wallet, txType models.TransactionType, amount, fee int64, now time.Time) *models.Transaction {
	txn := models.NewTransaction(wallet, txType, amount, fee, now)
	txn.MaxRetries = e.cfg.MaxRetries
	return txn
}

func (e *ledgerEngine) execute(ctx context.Context, p *posting) (legs []*models.Transaction, err error) {
	start := time.Now()
	defer func() { e.metrics.ObserveOperation(p.operation, start, err) }()

	if p.idemKey != "" {
		record, err := e.repos.Idempotency.Get(ctx, p.idemKey)
		if err != nil {
			return nil, asLedgerError(err)
		}
		if record != nil {
			return e.replay(ctx, record, p.requestHash)
		}
	}

	if err := e.precheck(ctx, p.legs); err != nil {
		return nil, err
	}

	if err := e.writeAhead(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) && p.idemKey != "" {
			// lost the race against a concurrent request with the same key
			record, getErr := e.repos.Idempotency.Get(ctx, p.idemKey)
			if getErr == nil && record != nil {
				return e.replay(ctx, record, p.requestHash)
			}
		}
		return nil, asLedgerError(err)
	}

	if err := e.commit(ctx, p.legs, p.afterApply); err != nil {
		return p.legs, err
	}

	e.log.Info("transaction completed",
		zap.String("operation", p.operation),
		zap.String("transaction_id", p.legs[0].ID),
		zap.String("wallet_id", p.legs[0].WalletID),
		zap.Int64("amount", p.legs[0].Amount),
	)
	return p.legs, nil
}

// replay answers a repeated idempotency key with the stored outcome
func (e *ledgerEngine) replay(ctx context.Context, record *models.IdempotencyRecord, requestHash string) ([]*models.Transaction, error) {
	if record.RequestHash != requestHash {
		return nil, apperrors.NewIdempotencyConflictError(record.Key)
	}

	ids := []string{record.TransactionID}
	if record.RelatedTransactionID != "" {
		ids = append(ids, record.RelatedTransactionID)
	}

	legs := make([]*models.Transaction, 0, len(ids))
	for _, id := range ids {
		txn, err := e.repos.Transaction.GetByID(ctx, id)
		if err != nil {
			return nil, asLedgerError(err)
		}
		legs = append(legs, txn)
	}

	e.log.Debug("idempotent replay", zap.String("key", record.Key), zap.String("transaction_id", record.TransactionID))
	return legs, legs[0].Err()
}

// precheck rejects requests that cannot succeed before anything is written
func (e *ledgerEngine) precheck(ctx context.Context, legs []*models.Transaction) error {
	now := e.now()
	for _, leg := range legs {
		wallet, err := e.repos.Wallet.GetByID(ctx, leg.WalletID)
		if err != nil {
			return asLedgerError(err)
		}
		if err := wallet.CanApply(leg.Amount, leg.Type, now); err != nil {
			return err
		}
	}
	return nil
}

// writeAhead durably records the intent as processing before any balance moves
func (e *ledgerEngine) writeAhead(ctx context.Context, p *posting) error {
	now := e.now()
	for _, leg := range p.legs {
		if err := leg.MarkProcessing(now); err != nil {
			return err
		}
	}

	err := e.repos.Atomic(ctx, func(r *repositories.Repositories) error {
		for _, leg := range p.legs {
			if err := r.Transaction.Create(ctx, leg); err != nil {
				return err
			}
		}
		if p.idemKey == "" {
			return nil
		}
		record := &models.IdempotencyRecord{
			Key:           p.idemKey,
			Operation:     p.operation,
			RequestHash:   p.requestHash,
			TransactionID: p.legs[0].ID,
			CreatedAt:     now,
		}
		if len(p.legs) > 1 {
			record.RelatedTransactionID = p.legs[1].ID
		}
		return r.Idempotency.Create(ctx, record)
	})
	if err != nil {
		return err
	}

	for _, leg := range p.legs {
		e.emit(leg, models.TransactionStatusPending, now)
	}
	return nil
}

// commit applies every processing leg under the wallet locks in one
// storage transaction. A leg whose history entry already exists is only
// marked completed, so replays never apply a delta twice.
func (e *ledgerEngine) commit(ctx context.Context, legs []*models.Transaction, afterApply afterApplyFunc) error {
	unlock := e.locker.Lock(walletIDs(legs)...)
	defer unlock()

	// the caller going away must not abandon a half-finished commit
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.CommitTimeout)
	defer cancel()

	now := e.now()
	var committed []*models.Transaction
	var followUps []statusChange

	err := e.repos.Atomic(cctx, func(r *repositories.Repositories) error {
		committed = committed[:0]
		followUps = followUps[:0]
		for _, leg := range legs {
			current, err := r.Transaction.GetByID(cctx, leg.ID)
			if err != nil {
				return err
			}
			if current.Status != models.TransactionStatusProcessing {
				return apperrors.NewInvalidTransitionError(string(current.Status), string(models.TransactionStatusCompleted))
			}

			applied, err := r.History.ExistsForTransaction(cctx, current.WalletID, current.ID)
			if err != nil {
				return err
			}
			if !applied {
				wallet, err := r.Wallet.GetByID(cctx, current.WalletID)
				if err != nil {
					return err
				}
				entry, err := wallet.ApplyDelta(current.Amount, current.Type, current.ID, current.Description, now)
				if err != nil {
					return err
				}
				if err := r.Wallet.Update(cctx, wallet); err != nil {
					return err
				}
				if err := r.History.Append(cctx, entry); err != nil {
					return err
				}
			}

			if err := current.MarkCompleted(utils.GenerateReferenceNumber(now), now); err != nil {
				return err
			}
			if err := r.Transaction.Update(cctx, current); err != nil {
				return err
			}
			committed = append(committed, current)
		}
		if afterApply != nil {
			return afterApply(cctx, r, now, func(txn *models.Transaction, previous models.TransactionStatus) {
				followUps = append(followUps, statusChange{txn: txn, previous: previous})
			})
		}
		return nil
	})
	if err != nil {
		err = asLedgerError(err)
		e.fail(cctx, legs, err)
		return err
	}

	for i, leg := range legs {
		*leg = *committed[i]
		e.emit(leg, models.TransactionStatusProcessing, now)
		e.metrics.ObserveCompleted(string(leg.Type), string(leg.Currency), abs(leg.Amount))
	}
	for _, change := range followUps {
		e.emit(change.txn, change.previous, now)
	}
	return nil
}

// fail records the failure on every leg still processing. If even that
// write is lost, the legs stay processing and RecoverStuck resolves them.
func (e *ledgerEngine) fail(ctx context.Context, legs []*models.Transaction, cause error) {
	code := apperrors.CodeOf(cause)
	now := e.now()

	var failed []*models.Transaction
	err := e.repos.Atomic(ctx, func(r *repositories.Repositories) error {
		failed = failed[:0]
		for _, leg := range legs {
			current, err := r.Transaction.GetByID(ctx, leg.ID)
			if err != nil {
				return err
			}
			if current.Status != models.TransactionStatusProcessing {
				continue
			}
			if err := current.MarkFailed(code, cause.Error(), now); err != nil {
				return err
			}
			if err := r.Transaction.Update(ctx, current); err != nil {
				return err
			}
			failed = append(failed, current)
		}
		return nil
	})
	if err != nil {
		e.log.Error("failed to record transaction failure",
			zap.String("transaction_id", legs[0].ID),
			zap.String("cause", cause.Error()),
			zap.Error(err),
		)
		return
	}

	for _, f := range failed {
		for _, leg := range legs {
			if leg.ID == f.ID {
				*leg = *f
				e.emit(leg, models.TransactionStatusProcessing, now)
			}
		}
	}

	e.log.Warn("transaction failed",
		zap.String("transaction_id", legs[0].ID),
		zap.String("error_code", string(code)),
		zap.String("error", cause.Error()),
	)
}

// legsOf returns the transaction plus its transfer counterpart, if any
func (e *ledgerEngine) legsOf(ctx context.Context, txn *models.Transaction) ([]*models.Transaction, error) {
	legs := []*models.Transaction{txn}
	if !txn.IsTransfer() || txn.RelatedTransactionID == "" {
		return legs, nil
	}
	partner, err := e.repos.Transaction.GetByID(ctx, txn.RelatedTransactionID)
	if err != nil {
		return nil, asLedgerError(err)
	}
	return append(legs, partner), nil
}

// afterApplyFor returns the follow-up a leg of this type needs on commit
func (e *ledgerEngine) afterApplyFor(txn *models.Transaction) afterApplyFunc {
	if txn.Type != models.TransactionTypeRefund || txn.RelatedTransactionID == "" {
		return nil
	}
	originalID := txn.RelatedTransactionID
	return func(ctx context.Context, r *repositories.Repositories, now time.Time, changed func(*models.Transaction, models.TransactionStatus)) error {
		original, err := r.Transaction.GetByID(ctx, originalID)
		if err != nil {
			return err
		}
		if err := original.MarkRefunded(now); err != nil {
			return err
		}
		if err := r.Transaction.Update(ctx, original); err != nil {
			return err
		}
		changed(original, models.TransactionStatusCompleted)
		return nil
	}
}

func (e *ledgerEngine) emit(txn *models.Transaction, previous models.TransactionStatus, at time.Time) {
	e.metrics.ObserveTransition(string(txn.Type), string(txn.Status))
	e.events.Emit(events.NewTransactionStatusChanged(txn, previous, at))
}

// asLedgerError classifies infrastructure errors so callers only ever see
// LedgerError values.
func asLedgerError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return apperrors.Wrap(apperrors.ErrConcurrentModification, "conflicting concurrent write", err)
	}
	return apperrors.NewStorageError(err)
}

func walletIDs(legs []*models.Transaction) []string {
	ids := make([]string, 0, len(legs))
	for _, leg := range legs {
		ids = append(ids, leg.WalletID)
	}
	return ids
}

func firstLeg(legs []*models.Transaction) *models.Transaction {
	if len(legs) == 0 {
		return nil
	}
	return legs[0]
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
