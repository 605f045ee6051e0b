package usecases

import (
	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/utils"
)

type CreateWalletCommand struct {
	UserID     string               `validate:"required,max=64"`
	WalletType string               `validate:"omitempty,max=32"`
	Currency   string               `validate:"omitempty,len=3"`
	Limits     *models.WalletLimits `validate:"-"`
}

type DepositCommand struct {
	WalletID         string `validate:"required"`
	Amount           int64  `validate:"gt=0"`
	PaymentMethod    string `validate:"max=64"`
	PaymentReference string `validate:"max=128"`
	Description      string `validate:"max=255"`
	IdempotencyKey   string `validate:"max=128"`
}

type WithdrawCommand struct {
	WalletID         string `validate:"required"`
	Amount           int64  `validate:"gt=0"`
	PaymentMethod    string `validate:"max=64"`
	PaymentReference string `validate:"max=128"`
	Description      string `validate:"max=255"`
	IdempotencyKey   string `validate:"max=128"`
}

type TransferCommand struct {
	FromWalletID   string `validate:"required"`
	ToUserID       string `validate:"required,max=64"`
	Amount         int64  `validate:"gt=0"`
	Description    string `validate:"max=255"`
	IdempotencyKey string `validate:"max=128"`
}

// InvestmentDebitCommand reserves funds for an investment; InvestmentRef
// doubles as the idempotency key.
type InvestmentDebitCommand struct {
	WalletID      string `validate:"required"`
	Amount        int64  `validate:"gt=0"`
	InvestmentRef string `validate:"required,max=100"`
}

type RefundCommand struct {
	TransactionID string `validate:"required"`
	Reason        string `validate:"max=255"`
}

func validateCommand(cmd interface{}) error {
	if err := utils.ValidateStruct(cmd); err != nil {
		return apperrors.NewValidationError("%s", err.Error())
	}
	return nil
}
