package usecases

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/models"
)

// defaultStatsRange is the window used when a stats query names no start
const defaultStatsRange = 30 * 24 * time.Hour

// TransactionStatsReport aggregates transactions created in [From, To)
type TransactionStatsReport struct {
	From        time.Time                          `json:"from"`
	To          time.Time                          `json:"to"`
	Rows        []models.TransactionStatsRow       `json:"rows"`
	TotalCount  int64                              `json:"total_count"`
	ByStatus    map[models.TransactionStatus]int64 `json:"by_status"`
	ByType      map[models.TransactionType]int64   `json:"by_type"`
	Completed   map[models.Currency]int64          `json:"completed_volume"`
	SuccessRate float64                            `json:"success_rate"`
}

type analyticsUseCase struct {
	*ledgerEngine
}

// NewAnalyticsUseCase creates a new analytics use case
func NewAnalyticsUseCase(engine *ledgerEngine) AnalyticsUseCase {
	return &analyticsUseCase{ledgerEngine: engine}
}

func (uc *analyticsUseCase) GetTransactionStats(ctx context.Context, filter models.TransactionStatsFilter) (*TransactionStatsReport, error) {
	if filter.To.IsZero() {
		filter.To = uc.now()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.Add(-defaultStatsRange)
	}
	if !filter.From.Before(filter.To) {
		return nil, apperrors.NewValidationError("from must be before to")
	}

	rows, err := uc.repos.Transaction.Stats(ctx, filter)
	if err != nil {
		return nil, asLedgerError(err)
	}

	report := &TransactionStatsReport{
		From:      filter.From,
		To:        filter.To,
		Rows:      rows,
		ByStatus:  make(map[models.TransactionStatus]int64),
		ByType:    make(map[models.TransactionType]int64),
		Completed: make(map[models.Currency]int64),
	}

	for _, row := range rows {
		report.TotalCount += row.Count
		report.ByStatus[row.Status] += row.Count
		report.ByType[row.Type] += row.Count
		if row.Status == models.TransactionStatusCompleted || row.Status == models.TransactionStatusRefunded {
			report.Completed[row.Currency] += row.Volume
		}
	}

	// refunded transactions did complete before they were compensated
	succeeded := report.ByStatus[models.TransactionStatusCompleted] + report.ByStatus[models.TransactionStatusRefunded]
	if settled := succeeded + report.ByStatus[models.TransactionStatusFailed]; settled > 0 {
		report.SuccessRate = float64(succeeded) / float64(settled)
	}

	return report, nil
}
