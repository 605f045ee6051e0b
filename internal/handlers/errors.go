package handlers

import (
	"net/http"
	"strconv"

	"github.com/estatex/wallet-ledger/internal/apperrors"
	"github.com/estatex/wallet-ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// statusFor maps a ledger error code onto an HTTP status
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrValidation, apperrors.ErrInvalidTransition:
		return http.StatusBadRequest
	case apperrors.ErrWalletNotFound, apperrors.ErrTransactionNotFound, apperrors.ErrDestinationNotFound:
		return http.StatusNotFound
	case apperrors.ErrDuplicateWallet, apperrors.ErrIdempotencyConflict, apperrors.ErrConcurrentModification:
		return http.StatusConflict
	case apperrors.ErrInsufficientFunds, apperrors.ErrLimitExceeded, apperrors.ErrWalletInactive, apperrors.ErrRetryNotAllowed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an ErrorResponse. Storage failures are not
// echoed to the caller.
func respondError(c *gin.Context, message string, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)

	detail := err.Error()
	if ledgerErr, ok := apperrors.As(err); ok {
		detail = ledgerErr.Message
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		detail = "internal error"
	}

	c.JSON(status, dto.ErrorResponse{
		Success: false,
		Message: message,
		Error:   detail,
		Code:    string(code),
	})
}

func respondBadRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
		Code:    string(apperrors.ErrValidation),
	})
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Success: false,
		Message: "User not authenticated",
		Error:   "user not authenticated",
	})
}

// pagination reads page and limit query parameters
func pagination(c *gin.Context) (int, int) {
	page := 1
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	limit := defaultPageSize
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxPageSize {
			limit = parsed
		}
	}

	return page, limit
}
