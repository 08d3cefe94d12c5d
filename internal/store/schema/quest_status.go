package schema

import (
	"time"
)

// Status is the review state of a (quest, user) pair
type Status string

const (
	// StatusInit is the implicit state before any submission
	StatusInit Status = "init"
	// StatusReview means a proof is submitted and awaiting review
	StatusReview Status = "review"
	// StatusPass means the most recent review accepted the proof
	StatusPass Status = "pass"
	// StatusFail means the most recent review rejected the proof
	StatusFail Status = "fail"
)

// QuestStatus represents the quest_statuses table - the unique pairing of
// one quest and one user, keyed by "<questId>-<userAddress>". The status is
// fully determined by the most recent submit/review event for the pair.
type QuestStatus struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// QuestID references the Quest
	QuestID string `gorm:"column:quest_id;not null;type:text;index:idx_quest_statuses_quest" json:"questId"`
	// QuestChainID references the chain, denormalized for query convenience
	QuestChainID string `gorm:"column:quest_chain_id;not null;type:text;index:idx_quest_statuses_chain" json:"questChainId"`
	// UserID references the submitting User
	UserID string `gorm:"column:user_id;not null;type:text;index:idx_quest_statuses_user" json:"userId"`
	// Status is the current review state
	Status Status `gorm:"column:status;not null;type:text" json:"status"`
	// UpdatedAt is the block timestamp of the last submit/review event
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`

	IndexedAt time.Time `gorm:"column:indexed_at;not null;default:now()" json:"-"`
}

// TableName specifies the table name for the QuestStatus model
func (QuestStatus) TableName() string {
	return "quest_statuses"
}
