package schema

import (
	"time"

	"gorm.io/datatypes"
)

// QuestChain represents the quest_chains table - one row per deployed quest
// chain contract, keyed by the contract address
type QuestChain struct {
	// ID is the quest chain contract address, lowercase hex
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// FactoryAddress is the factory contract that deployed this chain
	FactoryAddress string `gorm:"column:factory_address;not null;type:text;index:idx_quest_chains_factory" json:"factoryAddress"`
	// Network identifies the blockchain network (CAIP-2, e.g. "eip155:137")
	Network string `gorm:"column:network;not null;type:text" json:"network"`
	// CreatorID references the User that deployed the chain
	CreatorID string `gorm:"column:creator_id;not null;type:text;index:idx_quest_chains_creator" json:"creatorId"`
	// CreationTxHash is the deployment transaction hash
	CreationTxHash string `gorm:"column:creation_tx_hash;not null;type:text" json:"creationTxHash"`
	// CreatedAt is the block timestamp of the deployment
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`

	// Details is the current off-chain metadata reference (opaque URI);
	// the resolved fields below stay null until resolution succeeds
	Details     *string `gorm:"column:details;type:text" json:"details"`
	DetailsHash *string `gorm:"column:details_hash;type:text" json:"-"`
	Name        *string `gorm:"column:name;type:text;index:idx_quest_chains_name" json:"name"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	ImageURL    *string `gorm:"column:image_url;type:text" json:"imageUrl"`
	ExternalURL *string `gorm:"column:external_url;type:text" json:"externalUrl"`
	// Metadata is the raw resolved details document
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	// Role identifiers read from the contract at deployment; the zero hash
	// when the read failed
	OwnerRole    string `gorm:"column:owner_role;not null;type:text" json:"-"`
	AdminRole    string `gorm:"column:admin_role;not null;type:text" json:"-"`
	EditorRole   string `gorm:"column:editor_role;not null;type:text" json:"-"`
	ReviewerRole string `gorm:"column:reviewer_role;not null;type:text" json:"-"`

	// Role collections: ordered User id lists, multiset semantics
	Admins    IDList `gorm:"column:admins;type:jsonb;not null" json:"admins"`
	Editors   IDList `gorm:"column:editors;type:jsonb;not null" json:"editors"`
	Reviewers IDList `gorm:"column:reviewers;type:jsonb;not null" json:"reviewers"`

	// Aggregated QuestStatus id lists across all quests in the chain
	QuestsPassed   IDList `gorm:"column:quests_passed;type:jsonb;not null" json:"questsPassed"`
	QuestsFailed   IDList `gorm:"column:quests_failed;type:jsonb;not null" json:"questsFailed"`
	QuestsInReview IDList `gorm:"column:quests_in_review;type:jsonb;not null" json:"questsInReview"`

	// IndexedAt is the wall-clock time this record was first written
	IndexedAt time.Time `gorm:"column:indexed_at;not null;default:now()" json:"-"`
}

// TableName specifies the table name for the QuestChain model
func (QuestChain) TableName() string {
	return "quest_chains"
}
