package store

import (
	"context"

	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

// Store defines the interface for database operations. Entity getters
// return (nil, nil) when the record is absent; handlers rely on that to
// implement missing-parent no-ops. Saves overwrite the whole record.
type Store interface {
	// WithTx runs fn against a transactional view of the store. All saves
	// performed inside fn commit or roll back as one unit.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// GetQuestChain retrieves a quest chain by contract address
	GetQuestChain(ctx context.Context, id string) (*schema.QuestChain, error)
	// SaveQuestChain creates or overwrites a quest chain record
	SaveQuestChain(ctx context.Context, chain *schema.QuestChain) error
	// ListQuestChains retrieves quest chains for a network, newest first
	ListQuestChains(ctx context.Context, network string, limit, offset int) ([]*schema.QuestChain, error)

	// GetQuest retrieves a quest by its "<chain>-<number>" id
	GetQuest(ctx context.Context, id string) (*schema.Quest, error)
	// SaveQuest creates or overwrites a quest record
	SaveQuest(ctx context.Context, quest *schema.Quest) error
	// ListQuestsByChain retrieves all quests of a chain ordered by quest number
	ListQuestsByChain(ctx context.Context, chainID string) ([]*schema.Quest, error)

	// GetQuestStatus retrieves a quest status by its "<quest>-<user>" id
	GetQuestStatus(ctx context.Context, id string) (*schema.QuestStatus, error)
	// SaveQuestStatus creates or overwrites a quest status record
	SaveQuestStatus(ctx context.Context, status *schema.QuestStatus) error
	// ListQuestStatusesByUser retrieves all statuses submitted by a user
	ListQuestStatusesByUser(ctx context.Context, userID string) ([]*schema.QuestStatus, error)

	// GetUser retrieves a user by lowercase address
	GetUser(ctx context.Context, id string) (*schema.User, error)
	// SaveUser creates or overwrites a user record
	SaveUser(ctx context.Context, user *schema.User) error

	// GetToken retrieves a completion token by its "<contract>-<number>" id
	GetToken(ctx context.Context, id string) (*schema.QuestChainToken, error)
	// SaveToken creates or overwrites a completion token record
	SaveToken(ctx context.Context, token *schema.QuestChainToken) error

	// CreateQuestChainEdit inserts an immutable chain edit snapshot;
	// duplicate ids are ignored
	CreateQuestChainEdit(ctx context.Context, edit *schema.QuestChainEdit) error
	// CreateQuestEdit inserts an immutable quest edit snapshot; duplicate
	// ids are ignored
	CreateQuestEdit(ctx context.Context, edit *schema.QuestEdit) error
	// ListQuestChainEdits retrieves a chain's edit history, oldest first
	ListQuestChainEdits(ctx context.Context, chainID string) ([]*schema.QuestChainEdit, error)
	// ListQuestEdits retrieves a quest's edit history, oldest first
	ListQuestEdits(ctx context.Context, questID string) ([]*schema.QuestEdit, error)

	// MarkEventProcessed records an event id in the dedup ledger. Returns
	// false if the event was already processed.
	MarkEventProcessed(ctx context.Context, id string, blockNumber, logIndex uint64) (bool, error)

	// GetBlockCursor retrieves the last processed block number for a network
	GetBlockCursor(ctx context.Context, network string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a network
	SetBlockCursor(ctx context.Context, network string, blockNumber uint64) error

	// AddTrackedSource registers a contract address for indexing
	AddTrackedSource(ctx context.Context, source *schema.TrackedSource) error
	// IsTrackedSource checks whether a contract address is being indexed
	IsTrackedSource(ctx context.Context, address string) (bool, error)
	// ListTrackedSources retrieves all tracked addresses for a network
	ListTrackedSources(ctx context.Context, network string) ([]string, error)
}
