package schema

import (
	"time"
)

// TrackedSource represents the tracked_sources table - contract addresses
// the indexer follows. The factory address is seeded at startup; quest chain
// addresses are registered dynamically by the chain-deployed handler.
// Backfill uses the list as its address filter.
type TrackedSource struct {
	// Address is the contract address, lowercase hex
	Address string `gorm:"column:address;primaryKey;type:text"`
	// Network identifies the blockchain network (CAIP-2)
	Network string `gorm:"column:network;not null;type:text;index:idx_tracked_sources_network"`
	// AddedAt is the block timestamp of the registering event
	AddedAt time.Time `gorm:"column:added_at;not null"`
}

// TableName specifies the table name for the TrackedSource model
func (TrackedSource) TableName() string {
	return "tracked_sources"
}
