package usecases

import (
	"context"
	"fmt"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/estatex/wallet-ledger/internal/utils"
	"go.uber.org/zap"
)

type ledgerUseCase struct {
	*ledgerEngine
}

// NewLedgerUseCase creates a new ledger use case
func NewLedgerUseCase(engine *ledgerEngine) LedgerUseCase {
	return &ledgerUseCase{ledgerEngine: engine}
}

func (uc *ledgerUseCase) Deposit(ctx context.Context, cmd DepositCommand) (*models.Transaction, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	wallet, err := uc.repos.Wallet.GetByID(ctx, cmd.WalletID)
	if err != nil {
		return nil, asLedgerError(err)
	}

	txn := uc.newTransaction(wallet, models.TransactionTypeDeposit, cmd.Amount, 0, uc.now())
	txn.PaymentMethod = cmd.PaymentMethod
	txn.PaymentReference = cmd.PaymentReference
	txn.IdempotencyKey = cmd.IdempotencyKey
	txn.Description = describe(cmd.Description, "Deposit")

	legs, err := uc.execute(ctx, &posting{
		operation:   "deposit",
		idemKey:     cmd.IdempotencyKey,
		requestHash: utils.HashRequest("deposit", cmd.WalletID, cmd.Amount, cmd.PaymentMethod, cmd.PaymentReference),
		legs:        []*models.Transaction{txn},
	})
	return firstLeg(legs), err
}

func (uc *ledgerUseCase) Withdraw(ctx context.Context, cmd WithdrawCommand) (*models.Transaction, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	wallet, err := uc.repos.Wallet.GetByID(ctx, cmd.WalletID)
	if err != nil {
		return nil, asLedgerError(err)
	}

	fee := utils.BasisPoints(cmd.Amount, uc.cfg.WithdrawalFeeBps)
	txn := uc.newTransaction(wallet, models.TransactionTypeWithdrawal, -cmd.Amount, fee, uc.now())
	txn.PaymentMethod = cmd.PaymentMethod
	txn.PaymentReference = cmd.PaymentReference
	txn.IdempotencyKey = cmd.IdempotencyKey
	txn.Description = describe(cmd.Description, "Withdrawal")

	legs, err := uc.execute(ctx, &posting{
		operation:   "withdraw",
		idemKey:     cmd.IdempotencyKey,
		requestHash: utils.HashRequest("withdraw", cmd.WalletID, cmd.Amount, cmd.PaymentMethod, cmd.PaymentReference),
		legs:        []*models.Transaction{txn},
	})
	return firstLeg(legs), err
}

// DebitForInvestment moves funds out of the wallet into an investment.
// The investment reference is the idempotency key, so the same reference
// never debits twice.
func (uc *ledgerUseCase) DebitForInvestment(ctx context.Context, cmd InvestmentDebitCommand) (*models.Transaction, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	wallet, err := uc.repos.Wallet.GetByID(ctx, cmd.WalletID)
	if err != nil {
		return nil, asLedgerError(err)
	}

	key := "investment:" + cmd.InvestmentRef
	txn := uc.newTransaction(wallet, models.TransactionTypeInvestment, -cmd.Amount, 0, uc.now())
	txn.PaymentReference = cmd.InvestmentRef
	txn.IdempotencyKey = key
	txn.Description = fmt.Sprintf("Investment %s", cmd.InvestmentRef)

	legs, err := uc.execute(ctx, &posting{
		operation:   "investment",
		idemKey:     key,
		requestHash: utils.HashRequest("investment", cmd.WalletID, cmd.Amount, cmd.InvestmentRef),
		legs:        []*models.Transaction{txn},
	})
	return firstLeg(legs), err
}

// Refund credits back a completed debit and marks the original refunded
// in the same commit.
func (uc *ledgerUseCase) Refund(ctx context.Context, cmd RefundCommand) (*models.Transaction, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	original, err := uc.repos.Transaction.GetByID(ctx, cmd.TransactionID)
	if err != nil {
		return nil, asLedgerError(err)
	}
	// a refunded original falls through so the stored refund is replayed
	if original.Status != models.TransactionStatusCompleted && original.Status != models.TransactionStatusRefunded {
		return nil, apperrors.NewInvalidTransitionError(string(original.Status), string(models.TransactionStatusRefunded))
	}
	if !original.Type.IsRefundable() {
		return nil, apperrors.NewValidationError("%s transactions cannot be refunded", original.Type)
	}

	wallet, err := uc.repos.Wallet.GetByID(ctx, original.WalletID)
	if err != nil {
		return nil, asLedgerError(err)
	}

	key := "refund:" + original.ID
	refund := uc.newTransaction(wallet, models.TransactionTypeRefund, -original.Amount, 0, uc.now())
	refund.RelatedTransactionID = original.ID
	refund.PaymentReference = original.PaymentReference
	refund.IdempotencyKey = key
	refund.Description = describe(cmd.Reason, "Refund of "+original.ID)

	legs, err := uc.execute(ctx, &posting{
		operation:   "refund",
		idemKey:     key,
		requestHash: utils.HashRequest("refund", original.ID),
		legs:        []*models.Transaction{refund},
		afterApply:  uc.afterApplyFor(refund),
	})
	return firstLeg(legs), err
}

// CancelTransaction cancels a transaction whose delta was never applied.
// Both legs of a transfer are cancelled together.
func (uc *ledgerUseCase) CancelTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	txn, err := uc.repos.Transaction.GetByID(ctx, transactionID)
	if err != nil {
		return nil, asLedgerError(err)
	}

	legs, err := uc.legsOf(ctx, txn)
	if err != nil {
		return nil, err
	}

	unlock := uc.locker.Lock(walletIDs(legs)...)
	defer unlock()

	now := uc.now()
	var cancelled []statusChange
	err = uc.repos.Atomic(ctx, func(r *repositories.Repositories) error {
		cancelled = cancelled[:0]
		for _, leg := range legs {
			current, err := r.Transaction.GetByID(ctx, leg.ID)
			if err != nil {
				return err
			}
			applied, err := r.History.ExistsForTransaction(ctx, current.WalletID, current.ID)
			if err != nil {
				return err
			}
			if applied {
				return apperrors.NewInvalidTransitionError(string(models.TransactionStatusCompleted), string(models.TransactionStatusCancelled))
			}
			previous := current.Status
			if err := current.MarkCancelled(now); err != nil {
				return err
			}
			if err := r.Transaction.Update(ctx, current); err != nil {
				return err
			}
			cancelled = append(cancelled, statusChange{txn: current, previous: previous})
		}
		return nil
	})
	if err != nil {
		return nil, asLedgerError(err)
	}

	for _, change := range cancelled {
		uc.emit(change.txn, change.previous, now)
	}
	uc.log.Info("transaction cancelled", zap.String("transaction_id", transactionID))

	return cancelled[0].txn, nil
}

func (uc *ledgerUseCase) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	txn, err := uc.repos.Transaction.GetByID(ctx, transactionID)
	if err != nil {
		return nil, asLedgerError(err)
	}
	return txn, nil
}

func (uc *ledgerUseCase) ListTransactions(ctx context.Context, walletID string, page, pageSize int) ([]models.Transaction, int64, error) {
	if _, err := uc.repos.Wallet.GetByID(ctx, walletID); err != nil {
		return nil, 0, asLedgerError(err)
	}

	_, limit, offset := utils.Paginate(page, pageSize)
	txns, total, err := uc.repos.Transaction.ListByWallet(ctx, walletID, offset, limit)
	if err != nil {
		return nil, 0, asLedgerError(err)
	}
	return txns, total, nil
}

func describe(description, fallback string) string {
	if description = utils.SanitizeString(description); description != "" {
		return description
	}
	return fallback
}
