package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/estatex/wallet-ledger/internal/utils"
	"go.uber.org/zap"
)

// WalletStats is a wallet's usage as of now, windows already rolled over
type WalletStats struct {
	WalletID         string              `json:"wallet_id"`
	Balance          int64               `json:"balance"`
	Currency         models.Currency     `json:"currency"`
	Status           models.WalletStatus `json:"status"`
	Limits           models.WalletLimits `json:"limits"`
	Usage            models.UsageStats   `json:"usage"`
	DailyRemaining   *int64              `json:"daily_remaining,omitempty"`
	MonthlyRemaining *int64              `json:"monthly_remaining,omitempty"`
	YearlyRemaining  *int64              `json:"yearly_remaining,omitempty"`
	AsOf             time.Time           `json:"as_of"`
}

type walletUseCase struct {
	*ledgerEngine
}

// NewWalletUseCase creates a new wallet use case
func NewWalletUseCase(engine *ledgerEngine) WalletUseCase {
	return &walletUseCase{ledgerEngine: engine}
}

func (uc *walletUseCase) CreateWallet(ctx context.Context, cmd CreateWalletCommand) (*models.Wallet, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	currency := models.Currency(strings.ToUpper(utils.SanitizeString(cmd.Currency)))
	if currency == "" {
		currency = models.Currency(uc.cfg.DefaultCurrency)
	}
	if !currency.IsValid() {
		return nil, apperrors.NewValidationError("unsupported currency %q", currency)
	}

	limits := models.WalletLimits{
		MaxSingleTransaction: uc.cfg.MaxSingleTransaction,
		DailyLimit:           uc.cfg.DailyLimit,
		MonthlyLimit:         uc.cfg.MonthlyLimit,
		YearlyLimit:          uc.cfg.YearlyLimit,
	}
	if cmd.Limits != nil {
		limits = *cmd.Limits
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	wallet := models.NewWallet(cmd.UserID, utils.SanitizeString(cmd.WalletType), currency, limits, uc.now())

	existing, err := uc.repos.Wallet.GetByUserAndType(ctx, wallet.UserID, wallet.WalletType)
	if err == nil && existing != nil {
		return nil, apperrors.NewDuplicateWalletError(wallet.UserID, wallet.WalletType)
	}
	if err != nil && !apperrors.Is(err, apperrors.ErrWalletNotFound) {
		return nil, asLedgerError(err)
	}

	if err := uc.repos.Wallet.Create(ctx, wallet); err != nil {
		return nil, asLedgerError(err)
	}

	uc.log.Info("wallet created",
		zap.String("wallet_id", wallet.ID),
		zap.String("user_id", wallet.UserID),
		zap.String("wallet_type", wallet.WalletType),
		zap.String("currency", string(wallet.Currency)),
	)
	return wallet, nil
}

func (uc *walletUseCase) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return uc.GetWalletByType(ctx, userID, models.DefaultWalletType)
}

func (uc *walletUseCase) GetWalletByType(ctx context.Context, userID, walletType string) (*models.Wallet, error) {
	if walletType == "" {
		walletType = models.DefaultWalletType
	}
	wallet, err := uc.repos.Wallet.GetByUserAndType(ctx, userID, walletType)
	if err != nil {
		return nil, asLedgerError(err)
	}
	return wallet, nil
}

func (uc *walletUseCase) GetWalletByID(ctx context.Context, walletID string) (*models.Wallet, error) {
	wallet, err := uc.repos.Wallet.GetByID(ctx, walletID)
	if err != nil {
		return nil, asLedgerError(err)
	}
	return wallet, nil
}

func (uc *walletUseCase) ListWallets(ctx context.Context, userID string) ([]models.Wallet, error) {
	wallets, err := uc.repos.Wallet.ListByUser(ctx, userID)
	if err != nil {
		return nil, asLedgerError(err)
	}
	return wallets, nil
}

// GetBalanceHistory returns entries newest first
func (uc *walletUseCase) GetBalanceHistory(ctx context.Context, walletID string, page, pageSize int) ([]models.BalanceHistoryEntry, int64, error) {
	if _, err := uc.repos.Wallet.GetByID(ctx, walletID); err != nil {
		return nil, 0, asLedgerError(err)
	}

	_, limit, offset := utils.Paginate(page, pageSize)
	entries, total, err := uc.repos.History.ListByWallet(ctx, walletID, offset, limit)
	if err != nil {
		return nil, 0, asLedgerError(err)
	}
	return entries, total, nil
}

func (uc *walletUseCase) GetWalletStats(ctx context.Context, walletID string) (*WalletStats, error) {
	wallet, err := uc.repos.Wallet.GetByID(ctx, walletID)
	if err != nil {
		return nil, asLedgerError(err)
	}

	now := uc.now()
	usage := wallet.UsageAsOf(now)

	return &WalletStats{
		WalletID:         wallet.ID,
		Balance:          wallet.Balance,
		Currency:         wallet.Currency,
		Status:           wallet.Status,
		Limits:           wallet.Limits,
		Usage:            usage,
		DailyRemaining:   remaining(wallet.Limits.DailyLimit, usage.DailyVolume),
		MonthlyRemaining: remaining(wallet.Limits.MonthlyLimit, usage.MonthlyVolume),
		YearlyRemaining:  remaining(wallet.Limits.YearlyLimit, usage.YearlyVolume),
		AsOf:             now,
	}, nil
}

func (uc *walletUseCase) UpdateWalletStatus(ctx context.Context, walletID string, status models.WalletStatus) (*models.Wallet, error) {
	return uc.updateWallet(ctx, walletID, func(wallet *models.Wallet) error {
		return wallet.ChangeStatus(status)
	})
}

func (uc *walletUseCase) UpdateWalletLimits(ctx context.Context, walletID string, limits models.WalletLimits) (*models.Wallet, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return uc.updateWallet(ctx, walletID, func(wallet *models.Wallet) error {
		wallet.Limits = limits
		return nil
	})
}

// updateWallet serializes administrative changes with money movement on
// the same wallet.
func (uc *walletUseCase) updateWallet(ctx context.Context, walletID string, mutate func(*models.Wallet) error) (*models.Wallet, error) {
	unlock := uc.locker.Lock(walletID)
	defer unlock()

	var updated *models.Wallet
	err := uc.repos.Atomic(ctx, func(r *repositories.Repositories) error {
		wallet, err := r.Wallet.GetByID(ctx, walletID)
		if err != nil {
			return err
		}
		if err := mutate(wallet); err != nil {
			return err
		}
		wallet.UpdatedAt = uc.now()
		if err := r.Wallet.Update(ctx, wallet); err != nil {
			return err
		}
		updated = wallet
		return nil
	})
	if err != nil {
		return nil, asLedgerError(err)
	}

	uc.log.Info("wallet updated",
		zap.String("wallet_id", updated.ID),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func remaining(limit, used int64) *int64 {
	if limit <= 0 {
		return nil
	}
	left := limit - used
	if left < 0 {
		left = 0
	}
	return &left
}
