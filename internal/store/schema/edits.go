package schema

import (
	"time"
)

// QuestChainEdit represents the quest_chain_edits table - an immutable audit
// snapshot of a chain's pre-edit metadata, keyed by
// "<chainAddress>-<blockTimestamp>-<logIndex>". Written once, never mutated.
type QuestChainEdit struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// QuestChainID references the edited QuestChain
	QuestChainID string `gorm:"column:quest_chain_id;not null;type:text;index:idx_quest_chain_edits_chain" json:"questChainId"`
	// EditorID references the User that performed the edit
	EditorID string `gorm:"column:editor_id;not null;type:text" json:"editorId"`
	// EditedAt is the block timestamp of the edit event
	EditedAt time.Time `gorm:"column:edited_at;not null" json:"editedAt"`

	// Snapshot of the chain's fields as they were before the edit
	Details     *string `gorm:"column:details;type:text" json:"details"`
	Name        *string `gorm:"column:name;type:text" json:"name"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	ImageURL    *string `gorm:"column:image_url;type:text" json:"imageUrl"`
	ExternalURL *string `gorm:"column:external_url;type:text" json:"externalUrl"`
}

// TableName specifies the table name for the QuestChainEdit model
func (QuestChainEdit) TableName() string {
	return "quest_chain_edits"
}

// QuestEdit represents the quest_edits table - the quest-level counterpart
// of QuestChainEdit, with the same id scheme rooted at the quest id.
type QuestEdit struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// QuestID references the edited Quest
	QuestID string `gorm:"column:quest_id;not null;type:text;index:idx_quest_edits_quest" json:"questId"`
	// EditorID references the User that performed the edit
	EditorID string `gorm:"column:editor_id;not null;type:text" json:"editorId"`
	// EditedAt is the block timestamp of the edit event
	EditedAt time.Time `gorm:"column:edited_at;not null" json:"editedAt"`

	Details     *string `gorm:"column:details;type:text" json:"details"`
	Name        *string `gorm:"column:name;type:text" json:"name"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	ImageURL    *string `gorm:"column:image_url;type:text" json:"imageUrl"`
	ExternalURL *string `gorm:"column:external_url;type:text" json:"externalUrl"`
}

// TableName specifies the table name for the QuestEdit model
func (QuestEdit) TableName() string {
	return "quest_edits"
}
