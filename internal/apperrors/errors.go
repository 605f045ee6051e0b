package apperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a class of ledger failure. Codes are persisted on
// failed transactions, so their string values must stay stable.
type ErrorCode string

const (
	ErrValidation             ErrorCode = "VALIDATION_ERROR"
	ErrWalletNotFound         ErrorCode = "WALLET_NOT_FOUND"
	ErrWalletInactive         ErrorCode = "WALLET_INACTIVE"
	ErrDuplicateWallet        ErrorCode = "DUPLICATE_WALLET"
	ErrInsufficientFunds      ErrorCode = "INSUFFICIENT_FUNDS"
	ErrLimitExceeded          ErrorCode = "LIMIT_EXCEEDED"
	ErrDestinationNotFound    ErrorCode = "DESTINATION_NOT_FOUND"
	ErrRetryNotAllowed        ErrorCode = "RETRY_NOT_ALLOWED"
	ErrConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	ErrIdempotencyConflict    ErrorCode = "IDEMPOTENCY_CONFLICT"
	ErrTransactionNotFound    ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrInvalidTransition      ErrorCode = "INVALID_TRANSITION"
	ErrStorage                ErrorCode = "STORAGE_ERROR"
	ErrOrphaned               ErrorCode = "ORPHANED"
)

// LimitKind names the limit that rejected an operation.
type LimitKind string

const (
	LimitSingle  LimitKind = "single"
	LimitDaily   LimitKind = "daily"
	LimitMonthly LimitKind = "monthly"
	LimitYearly  LimitKind = "yearly"
)

// LedgerError is the single error type returned by the ledger for
// business-rule and infrastructure failures.
type LedgerError struct {
	Code    ErrorCode
	Message string
	Limit   LimitKind
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// New creates a LedgerError with the given code
func New(code ErrorCode, message string) *LedgerError {
	return &LedgerError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error
func Wrap(code ErrorCode, message string, err error) *LedgerError {
	return &LedgerError{Code: code, Message: message, Err: err}
}

func NewValidationError(format string, args ...interface{}) *LedgerError {
	return New(ErrValidation, fmt.Sprintf(format, args...))
}

func NewWalletNotFoundError(walletID string) *LedgerError {
	return New(ErrWalletNotFound, fmt.Sprintf("wallet %s not found", walletID))
}

func NewWalletInactiveError(walletID, status string) *LedgerError {
	return New(ErrWalletInactive, fmt.Sprintf("wallet %s is %s", walletID, status))
}

func NewDuplicateWalletError(userID, walletType string) *LedgerError {
	return New(ErrDuplicateWallet, fmt.Sprintf("user %s already has a %s wallet", userID, walletType))
}

func NewInsufficientFundsError(balance, required int64) *LedgerError {
	return New(ErrInsufficientFunds, fmt.Sprintf("balance %d is below required %d", balance, required))
}

func NewLimitExceededError(kind LimitKind, limit, attempted int64) *LedgerError {
	return &LedgerError{
		Code:    ErrLimitExceeded,
		Message: fmt.Sprintf("%s limit %d exceeded by %d", kind, limit, attempted),
		Limit:   kind,
	}
}

func NewDestinationNotFoundError(userID string) *LedgerError {
	return New(ErrDestinationNotFound, fmt.Sprintf("no destination wallet for user %s", userID))
}

func NewRetryNotAllowedError(reason string) *LedgerError {
	return New(ErrRetryNotAllowed, reason)
}

func NewConcurrentModificationError(entity, id string) *LedgerError {
	return New(ErrConcurrentModification, fmt.Sprintf("%s %s was modified concurrently", entity, id))
}

func NewIdempotencyConflictError(key string) *LedgerError {
	return New(ErrIdempotencyConflict, fmt.Sprintf("idempotency key %q was used with a different request", key))
}

func NewTransactionNotFoundError(id string) *LedgerError {
	return New(ErrTransactionNotFound, fmt.Sprintf("transaction %s not found", id))
}

func NewInvalidTransitionError(from, to string) *LedgerError {
	return New(ErrInvalidTransition, fmt.Sprintf("cannot move transaction from %s to %s", from, to))
}

func NewStorageError(err error) *LedgerError {
	return Wrap(ErrStorage, "storage failure", err)
}

// As extracts the LedgerError from an error chain.
func As(err error) (*LedgerError, bool) {
	var ledgerErr *LedgerError
	if err == nil {
		return nil, false
	}
	if errors.As(err, &ledgerErr) {
		return ledgerErr, true
	}
	return nil, false
}

// CodeOf returns the code carried by err. Errors that are not a
// LedgerError are infrastructure failures and report ErrStorage.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if ledgerErr, ok := As(err); ok {
		return ledgerErr.Code
	}
	return ErrStorage
}

// Is reports whether err carries the given code
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsTransient reports whether a failure with this code may succeed when
// replayed unchanged.
func IsTransient(code ErrorCode) bool {
	switch code {
	case ErrConcurrentModification, ErrStorage, ErrOrphaned:
		return true
	default:
		return false
	}
}

// TransientCodes lists every code IsTransient accepts.
func TransientCodes() []string {
	return []string{string(ErrConcurrentModification), string(ErrStorage), string(ErrOrphaned)}
}
