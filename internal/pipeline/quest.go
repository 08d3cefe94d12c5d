package pipeline

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/metadata"
	"github.com/quest-chains/qc-indexer/internal/store"
	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

// handleQuestCreated creates a quest under its chain. Quest numbers are
// assigned by the contract; a creation event for an unknown chain is a no-op.
func (p *Pipeline) handleQuestCreated(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	chain, err := tx.GetQuestChain(ctx, event.ContractAddress)
	if err != nil {
		return err
	}
	if chain == nil {
		logger.WarnCtx(ctx, "quest creation event for unknown quest chain",
			zap.String("chain", event.ContractAddress),
			zap.String("id", event.ID()))
		return nil
	}

	if _, err := p.ensureUser(ctx, tx, *event.Sender); err != nil {
		return err
	}

	details := p.metadata.Resolve(ctx, *event.Details)

	quest := &schema.Quest{
		ID:           domain.QuestKey(chain.ID, *event.QuestID),
		QuestChainID: chain.ID,
		QuestNumber:  *event.QuestID,
		CreatorID:    *event.Sender,
		CreatedAt:    event.Timestamp,

		UsersPassed:   schema.IDList{},
		UsersFailed:   schema.IDList{},
		UsersInReview: schema.IDList{},

		IndexedAt: p.clock.Now(),
	}
	applyQuestDetails(quest, details)

	return tx.SaveQuest(ctx, quest)
}

// handleQuestEdited snapshots the quest's current metadata into the edit
// history, then overwrites it with the newly resolved details
func (p *Pipeline) handleQuestEdited(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	quest, err := tx.GetQuest(ctx, domain.QuestKey(event.ContractAddress, *event.QuestID))
	if err != nil {
		return err
	}
	if quest == nil {
		logger.WarnCtx(ctx, "edit event for unknown quest",
			zap.String("chain", event.ContractAddress),
			zap.Uint64("quest", *event.QuestID),
			zap.String("id", event.ID()))
		return nil
	}

	if _, err := p.ensureUser(ctx, tx, *event.Sender); err != nil {
		return err
	}

	edit := &schema.QuestEdit{
		ID:          domain.EditKey(quest.ID, event.Timestamp, event.LogIndex),
		QuestID:     quest.ID,
		EditorID:    *event.Sender,
		EditedAt:    event.Timestamp,
		Details:     quest.Details,
		Name:        quest.Name,
		Description: quest.Description,
		ImageURL:    quest.ImageURL,
		ExternalURL: quest.ExternalURL,
	}
	if err := tx.CreateQuestEdit(ctx, edit); err != nil {
		return err
	}

	details := p.metadata.Resolve(ctx, *event.Details)
	applyQuestDetails(quest, details)

	quest.EditorID = event.Sender
	editedAt := event.Timestamp
	quest.EditedAt = &editedAt

	return tx.SaveQuest(ctx, quest)
}

func applyQuestDetails(quest *schema.Quest, details *metadata.Details) {
	quest.Details = details.Details
	quest.DetailsHash = details.DetailsHash
	quest.Name = details.Name
	quest.Description = details.Description
	quest.ImageURL = details.ImageURL
	quest.ExternalURL = details.ExternalURL
	quest.Metadata = datatypes.JSON(details.Document)
}
