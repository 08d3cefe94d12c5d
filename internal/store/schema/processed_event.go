package schema

import (
	"time"
)

// ProcessedEvent represents the processed_events table - the dedup ledger.
// One row per handled on-chain log, keyed by the deterministic event id
// "<network>:<blockNumber>:<logIndex>". Inserted in the same transaction as
// the handler's mutations, so a redelivered event is recognized and skipped
// atomically.
type ProcessedEvent struct {
	ID          string    `gorm:"column:id;primaryKey;type:text"`
	BlockNumber uint64    `gorm:"column:block_number;not null;index:idx_processed_events_block"`
	LogIndex    uint64    `gorm:"column:log_index;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;not null;default:now()"`
}

// TableName specifies the table name for the ProcessedEvent model
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
