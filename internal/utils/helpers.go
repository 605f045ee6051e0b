package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// GenerateReferenceNumber returns a sortable, human-quotable transaction reference
func GenerateReferenceNumber(at time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy())
	return "TXN-" + id.String()
}

// HashRequest fingerprints the fields that define a request so a reused
// idempotency key can be told apart from a genuine replay.
func HashRequest(parts ...interface{}) string {
	fields := make([]string, len(parts))
	for i, part := range parts {
		fields[i] = fmt.Sprint(part)
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// Paginate normalizes page parameters and returns the row offset
func Paginate(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// BasisPoints returns amount * bps / 10000, rounded down
func BasisPoints(amount, bps int64) int64 {
	if bps <= 0 || amount <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(10000)).
		Floor().
		IntPart()
}

// SanitizeString trims whitespace from string
func SanitizeString(input string) string {
	return strings.TrimSpace(input)
}
