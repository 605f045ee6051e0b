package usecases

import (
	"context"
	"fmt"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/utils"
)

// Transfer moves funds to the recipient's primary wallet as a linked pair
// of legs that commit together. The transfer fee stays with the sender's
// debit: the recipient is credited amount minus fee.
func (uc *ledgerUseCase) Transfer(ctx context.Context, cmd TransferCommand) (*models.Transaction, *models.Transaction, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, nil, err
	}

	source, err := uc.repos.Wallet.GetByID(ctx, cmd.FromWalletID)
	if err != nil {
		return nil, nil, asLedgerError(err)
	}

	destination, err := uc.repos.Wallet.GetByUserAndType(ctx, cmd.ToUserID, models.DefaultWalletType)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrWalletNotFound) {
			return nil, nil, apperrors.NewDestinationNotFoundError(cmd.ToUserID)
		}
		return nil, nil, asLedgerError(err)
	}

	if destination.ID == source.ID {
		return nil, nil, apperrors.NewValidationError("cannot transfer to the same wallet")
	}
	if destination.Currency != source.Currency {
		return nil, nil, apperrors.NewValidationError("currency mismatch: %s to %s", source.Currency, destination.Currency)
	}

	fee := utils.BasisPoints(cmd.Amount, uc.cfg.TransferFeeBps)
	if cmd.Amount-fee <= 0 {
		return nil, nil, apperrors.NewValidationError("amount does not cover the transfer fee")
	}

	now := uc.now()
	out := uc.newTransaction(source, models.TransactionTypeTransferOut, -cmd.Amount, fee, now)
	in := uc.newTransaction(destination, models.TransactionTypeTransferIn, cmd.Amount-fee, 0, now)

	out.CounterpartyWalletID, out.CounterpartyUserID, out.RelatedTransactionID = destination.ID, destination.UserID, in.ID
	in.CounterpartyWalletID, in.CounterpartyUserID, in.RelatedTransactionID = source.ID, source.UserID, out.ID
	out.IdempotencyKey, in.IdempotencyKey = cmd.IdempotencyKey, cmd.IdempotencyKey

	out.Description = describe(cmd.Description, fmt.Sprintf("Transfer to %s", destination.UserID))
	in.Description = describe(cmd.Description, fmt.Sprintf("Transfer from %s", source.UserID))

	legs, err := uc.execute(ctx, &posting{
		operation:   "transfer",
		idemKey:     cmd.IdempotencyKey,
		requestHash: utils.HashRequest("transfer", cmd.FromWalletID, cmd.ToUserID, cmd.Amount),
		legs:        []*models.Transaction{out, in},
	})
	if len(legs) < 2 {
		return firstLeg(legs), nil, err
	}
	return legs[0], legs[1], err
}
