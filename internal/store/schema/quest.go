package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Quest represents the quests table - one row per quest, keyed by
// "<chainAddress>-<questNumber>". Quest numbers are assigned monotonically
// by the contract and never reused.
type Quest struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// QuestChainID references the parent QuestChain
	QuestChainID string `gorm:"column:quest_chain_id;not null;type:text;index:idx_quests_chain" json:"questChainId"`
	// QuestNumber is the quest's small integer id within the chain
	QuestNumber uint64 `gorm:"column:quest_number;not null" json:"questNumber"`
	// CreatorID references the User that created the quest
	CreatorID string `gorm:"column:creator_id;not null;type:text" json:"creatorId"`
	// CreatedAt is the block timestamp of the creation event
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`

	Details     *string `gorm:"column:details;type:text" json:"details"`
	DetailsHash *string `gorm:"column:details_hash;type:text" json:"-"`
	Name        *string `gorm:"column:name;type:text" json:"name"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	ImageURL    *string `gorm:"column:image_url;type:text" json:"imageUrl"`
	ExternalURL *string `gorm:"column:external_url;type:text" json:"externalUrl"`
	// Metadata is the raw resolved details document
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	// EditorID / EditedAt record the most recent edit, nil until first edited
	EditorID *string    `gorm:"column:editor_id;type:text" json:"editorId"`
	EditedAt *time.Time `gorm:"column:edited_at" json:"editedAt"`

	// QuestStatus id lists per review outcome
	UsersPassed   IDList `gorm:"column:users_passed;type:jsonb;not null" json:"usersPassed"`
	UsersFailed   IDList `gorm:"column:users_failed;type:jsonb;not null" json:"usersFailed"`
	UsersInReview IDList `gorm:"column:users_in_review;type:jsonb;not null" json:"usersInReview"`

	IndexedAt time.Time `gorm:"column:indexed_at;not null;default:now()" json:"-"`
}

// TableName specifies the table name for the Quest model
func (Quest) TableName() string {
	return "quests"
}
