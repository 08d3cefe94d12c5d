package schema

import (
	"time"
)

// User represents the users table - one row per address ever referenced by
// an event, created lazily and never deleted. Keyed by the lowercase hex
// address.
type User struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`

	// Chain membership back-references (QuestChain id lists)
	AdminOf    IDList `gorm:"column:admin_of;type:jsonb;not null" json:"adminOf"`
	EditorOf   IDList `gorm:"column:editor_of;type:jsonb;not null" json:"editorOf"`
	ReviewerOf IDList `gorm:"column:reviewer_of;type:jsonb;not null" json:"reviewerOf"`

	// Quest participation back-references (QuestStatus id lists)
	QuestsPassed   IDList `gorm:"column:quests_passed;type:jsonb;not null" json:"questsPassed"`
	QuestsFailed   IDList `gorm:"column:quests_failed;type:jsonb;not null" json:"questsFailed"`
	QuestsInReview IDList `gorm:"column:quests_in_review;type:jsonb;not null" json:"questsInReview"`

	IndexedAt time.Time `gorm:"column:indexed_at;not null;default:now()" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
