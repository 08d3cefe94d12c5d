package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the database tables for all entity models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.QuestChain{},
		&schema.Quest{},
		&schema.QuestStatus{},
		&schema.User{},
		&schema.QuestChainToken{},
		&schema.QuestChainEdit{},
		&schema.QuestEdit{},
		&schema.KeyValueStore{},
		&schema.ProcessedEvent{},
		&schema.TrackedSource{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to reasonable defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings
// into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Idle connections above the open limit can never exist
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// WithTx runs fn against a transactional view of the store
func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

// GetQuestChain retrieves a quest chain by contract address
func (s *pgStore) GetQuestChain(ctx context.Context, id string) (*schema.QuestChain, error) {
	var chain schema.QuestChain
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&chain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quest chain: %w", err)
	}
	return &chain, nil
}

// SaveQuestChain creates or overwrites a quest chain record
func (s *pgStore) SaveQuestChain(ctx context.Context, chain *schema.QuestChain) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(chain).Error
	if err != nil {
		return fmt.Errorf("failed to save quest chain: %w", err)
	}
	return nil
}

// ListQuestChains retrieves quest chains for a network, newest first
func (s *pgStore) ListQuestChains(ctx context.Context, network string, limit, offset int) ([]*schema.QuestChain, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var chains []*schema.QuestChain
	query := s.db.WithContext(ctx).Order("created_at DESC, id").Limit(limit).Offset(offset)
	if network != "" {
		query = query.Where("network = ?", network)
	}
	if err := query.Find(&chains).Error; err != nil {
		return nil, fmt.Errorf("failed to list quest chains: %w", err)
	}
	return chains, nil
}

// GetQuest retrieves a quest by id
func (s *pgStore) GetQuest(ctx context.Context, id string) (*schema.Quest, error) {
	var quest schema.Quest
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&quest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return &quest, nil
}

// SaveQuest creates or overwrites a quest record
func (s *pgStore) SaveQuest(ctx context.Context, quest *schema.Quest) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(quest).Error
	if err != nil {
		return fmt.Errorf("failed to save quest: %w", err)
	}
	return nil
}

// ListQuestsByChain retrieves all quests of a chain ordered by quest number
func (s *pgStore) ListQuestsByChain(ctx context.Context, chainID string) ([]*schema.Quest, error) {
	var quests []*schema.Quest
	err := s.db.WithContext(ctx).
		Where("quest_chain_id = ?", chainID).
		Order("quest_number").
		Find(&quests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	return quests, nil
}

// GetQuestStatus retrieves a quest status by id
func (s *pgStore) GetQuestStatus(ctx context.Context, id string) (*schema.QuestStatus, error) {
	var status schema.QuestStatus
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quest status: %w", err)
	}
	return &status, nil
}

// SaveQuestStatus creates or overwrites a quest status record
func (s *pgStore) SaveQuestStatus(ctx context.Context, status *schema.QuestStatus) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(status).Error
	if err != nil {
		return fmt.Errorf("failed to save quest status: %w", err)
	}
	return nil
}

// ListQuestStatusesByUser retrieves all statuses submitted by a user
func (s *pgStore) ListQuestStatusesByUser(ctx context.Context, userID string) ([]*schema.QuestStatus, error) {
	var statuses []*schema.QuestStatus
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at").
		Find(&statuses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quest statuses: %w", err)
	}
	return statuses, nil
}

// GetUser retrieves a user by lowercase address
func (s *pgStore) GetUser(ctx context.Context, id string) (*schema.User, error) {
	var user schema.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// SaveUser creates or overwrites a user record
func (s *pgStore) SaveUser(ctx context.Context, user *schema.User) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetToken retrieves a completion token by id
func (s *pgStore) GetToken(ctx context.Context, id string) (*schema.QuestChainToken, error) {
	var token schema.QuestChainToken
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &token, nil
}

// SaveToken creates or overwrites a completion token record
func (s *pgStore) SaveToken(ctx context.Context, token *schema.QuestChainToken) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// CreateQuestChainEdit inserts an immutable chain edit snapshot
func (s *pgStore) CreateQuestChainEdit(ctx context.Context, edit *schema.QuestChainEdit) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(edit).Error
	if err != nil {
		return fmt.Errorf("failed to create quest chain edit: %w", err)
	}
	return nil
}

// CreateQuestEdit inserts an immutable quest edit snapshot
func (s *pgStore) CreateQuestEdit(ctx context.Context, edit *schema.QuestEdit) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(edit).Error
	if err != nil {
		return fmt.Errorf("failed to create quest edit: %w", err)
	}
	return nil
}

// ListQuestChainEdits retrieves a chain's edit history, oldest first
func (s *pgStore) ListQuestChainEdits(ctx context.Context, chainID string) ([]*schema.QuestChainEdit, error) {
	var edits []*schema.QuestChainEdit
	err := s.db.WithContext(ctx).
		Where("quest_chain_id = ?", chainID).
		Order("edited_at, id").
		Find(&edits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quest chain edits: %w", err)
	}
	return edits, nil
}

// ListQuestEdits retrieves a quest's edit history, oldest first
func (s *pgStore) ListQuestEdits(ctx context.Context, questID string) ([]*schema.QuestEdit, error) {
	var edits []*schema.QuestEdit
	err := s.db.WithContext(ctx).
		Where("quest_id = ?", questID).
		Order("edited_at, id").
		Find(&edits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quest edits: %w", err)
	}
	return edits, nil
}

// MarkEventProcessed records an event id in the dedup ledger. Returns false
// when the event has already been processed.
func (s *pgStore) MarkEventProcessed(ctx context.Context, id string, blockNumber, logIndex uint64) (bool, error) {
	event := schema.ProcessedEvent{
		ID:          id,
		BlockNumber: blockNumber,
		LogIndex:    logIndex,
		ProcessedAt: time.Now(),
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&event)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetBlockCursor retrieves the last processed block number for a network
func (s *pgStore) GetBlockCursor(ctx context.Context, network string) (uint64, error) {
	key := fmt.Sprintf("block_cursor:%s", network)

	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, nil
}

// SetBlockCursor stores the last processed block number for a network
func (s *pgStore) SetBlockCursor(ctx context.Context, network string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   fmt.Sprintf("block_cursor:%s", network),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}
	return nil
}

// AddTrackedSource registers a contract address for indexing
func (s *pgStore) AddTrackedSource(ctx context.Context, source *schema.TrackedSource) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(source).Error
	if err != nil {
		return fmt.Errorf("failed to add tracked source: %w", err)
	}
	return nil
}

// IsTrackedSource checks whether a contract address is being indexed
func (s *pgStore) IsTrackedSource(ctx context.Context, address string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.TrackedSource{}).
		Where("address = ?", address).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check tracked source: %w", err)
	}
	return count > 0, nil
}

// ListTrackedSources retrieves all tracked addresses for a network
func (s *pgStore) ListTrackedSources(ctx context.Context, network string) ([]string, error) {
	var addresses []string
	err := s.db.WithContext(ctx).
		Model(&schema.TrackedSource{}).
		Where("network = ?", network).
		Order("added_at").
		Pluck("address", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked sources: %w", err)
	}
	return addresses, nil
}
