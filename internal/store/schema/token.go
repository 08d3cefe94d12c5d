package schema

import (
	"time"

	"gorm.io/datatypes"
)

// QuestChainToken represents the quest_chain_tokens table - the ERC1155
// completion token minted by a quest chain, keyed by
// "<tokenContract>-<tokenNumber>". Created lazily on the first transfer or
// URI event referencing the token id.
type QuestChainToken struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// QuestChainID references the chain that owns the token contract
	QuestChainID string `gorm:"column:quest_chain_id;not null;type:text;index:idx_tokens_chain" json:"questChainId"`
	// TokenNumber is the ERC1155 token id
	TokenNumber uint64 `gorm:"column:token_number;not null" json:"tokenNumber"`

	// Token metadata is richer than the plain chain/quest schema: it also
	// carries an animation URL and its sniffed mime type
	Details      *string `gorm:"column:details;type:text" json:"details"`
	Name         *string `gorm:"column:name;type:text" json:"name"`
	Description  *string `gorm:"column:description;type:text" json:"description"`
	ImageURL     *string `gorm:"column:image_url;type:text" json:"imageUrl"`
	ExternalURL  *string `gorm:"column:external_url;type:text" json:"externalUrl"`
	AnimationURL *string `gorm:"column:animation_url;type:text" json:"animationUrl"`
	MimeType     *string `gorm:"column:mime_type;type:text" json:"mimeType"`
	// Metadata is the raw resolved details document
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	// Owners is the User id list of current holders. Semantically a set,
	// maintained by append on mint and remove-by-value on burn.
	Owners IDList `gorm:"column:owners;type:jsonb;not null" json:"owners"`

	IndexedAt time.Time `gorm:"column:indexed_at;not null;default:now()" json:"-"`
}

// TableName specifies the table name for the QuestChainToken model
func (QuestChainToken) TableName() string {
	return "quest_chain_tokens"
}
