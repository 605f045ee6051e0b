package models

import (
	"math"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Currency is an ISO-like currency code. Amounts are always stored as
// integers in the currency's minor unit.
type Currency string

const (
	CurrencyIRR Currency = "IRR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyBTC Currency = "BTC"
	CurrencyETH Currency = "ETH"
)

// ETH is kept in gwei; wei does not fit an int64 balance.
var currencyExponents = map[Currency]int32{
	CurrencyIRR: 0,
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencyBTC: 8,
	CurrencyETH: 9,
}

// IsValid checks if the currency is supported
func (c Currency) IsValid() bool {
	_, ok := currencyExponents[c]
	return ok
}

// Exponent returns the number of minor-unit digits
func (c Currency) Exponent() int32 {
	return currencyExponents[c]
}

// ToMajor converts a minor-unit amount into a decimal in major units.
func (c Currency) ToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, -c.Exponent())
}

// Format renders a minor-unit amount with the currency's precision
func (c Currency) Format(amount int64) string {
	return c.ToMajor(amount).StringFixed(c.Exponent())
}

// FromMajor converts a major-unit decimal into minor units. Amounts finer
// than the currency's precision, or too large for int64, are rejected.
func (c Currency) FromMajor(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(c.Exponent())
	if !minor.Equal(minor.Truncate(0)) {
		return 0, apperrors.NewValidationError("amount %s has more than %d decimal places for %s", amount.String(), c.Exponent(), c)
	}
	if minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || minor.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, apperrors.NewValidationError("amount %s is out of range", amount.String())
	}
	return minor.IntPart(), nil
}
