package models

import "time"

// IdempotencyRecord remembers which transaction a client key produced
type IdempotencyRecord struct {
	Key                  string    `json:"key" gorm:"type:varchar(128);primaryKey"`
	Operation            string    `json:"operation" gorm:"type:varchar(32);not null"`
	RequestHash          string    `json:"request_hash" gorm:"type:varchar(64);not null"`
	TransactionID        string    `json:"transaction_id" gorm:"type:varchar(36);not null"`
	RelatedTransactionID string    `json:"related_transaction_id,omitempty" gorm:"type:varchar(36)"`
	CreatedAt            time.Time `json:"created_at"`
}

// TableName overrides the table name used by IdempotencyRecord
func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}
