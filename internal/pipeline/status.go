package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/store"
	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

// statusEntities bundles the three records whose membership lists track a
// quest status: the status's quest, its chain and its user
type statusEntities struct {
	chain *schema.QuestChain
	quest *schema.Quest
	user  *schema.User
}

// detach removes the status id from every outcome list. Called before
// re-attaching so a status is never in two lists at once.
func (s *statusEntities) detach(statusID string) {
	s.quest.UsersInReview = s.quest.UsersInReview.Remove(statusID)
	s.quest.UsersPassed = s.quest.UsersPassed.Remove(statusID)
	s.quest.UsersFailed = s.quest.UsersFailed.Remove(statusID)

	s.chain.QuestsInReview = s.chain.QuestsInReview.Remove(statusID)
	s.chain.QuestsPassed = s.chain.QuestsPassed.Remove(statusID)
	s.chain.QuestsFailed = s.chain.QuestsFailed.Remove(statusID)

	s.user.QuestsInReview = s.user.QuestsInReview.Remove(statusID)
	s.user.QuestsPassed = s.user.QuestsPassed.Remove(statusID)
	s.user.QuestsFailed = s.user.QuestsFailed.Remove(statusID)
}

// attach appends the status id to the list matching the new status
func (s *statusEntities) attach(statusID string, status schema.Status) {
	switch status {
	case schema.StatusReview:
		s.quest.UsersInReview = s.quest.UsersInReview.Append(statusID)
		s.chain.QuestsInReview = s.chain.QuestsInReview.Append(statusID)
		s.user.QuestsInReview = s.user.QuestsInReview.Append(statusID)
	case schema.StatusPass:
		s.quest.UsersPassed = s.quest.UsersPassed.Append(statusID)
		s.chain.QuestsPassed = s.chain.QuestsPassed.Append(statusID)
		s.user.QuestsPassed = s.user.QuestsPassed.Append(statusID)
	case schema.StatusFail:
		s.quest.UsersFailed = s.quest.UsersFailed.Append(statusID)
		s.chain.QuestsFailed = s.chain.QuestsFailed.Append(statusID)
		s.user.QuestsFailed = s.user.QuestsFailed.Append(statusID)
	}
}

func (p *Pipeline) save(ctx context.Context, tx store.Store, entities *statusEntities, status *schema.QuestStatus) error {
	if err := tx.SaveQuest(ctx, entities.quest); err != nil {
		return err
	}
	if err := tx.SaveQuestChain(ctx, entities.chain); err != nil {
		return err
	}
	if err := tx.SaveUser(ctx, entities.user); err != nil {
		return err
	}
	return tx.SaveQuestStatus(ctx, status)
}

func (p *Pipeline) loadStatusEntities(ctx context.Context, tx store.Store, chainID, questID, userID string) (*statusEntities, error) {
	chain, err := tx.GetQuestChain(ctx, chainID)
	if err != nil || chain == nil {
		return nil, err
	}
	quest, err := tx.GetQuest(ctx, questID)
	if err != nil || quest == nil {
		return nil, err
	}
	user, err := p.ensureUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return &statusEntities{chain: chain, quest: quest, user: user}, nil
}

// handleProofSubmitted moves a (quest, user) status to review. A fresh
// submission creates the status; a resubmission after a failed review moves
// it out of the failed lists.
func (p *Pipeline) handleProofSubmitted(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	questKey := domain.QuestKey(event.ContractAddress, *event.QuestID)

	entities, err := p.loadStatusEntities(ctx, tx, event.ContractAddress, questKey, *event.Sender)
	if err != nil {
		return err
	}
	if entities == nil {
		logger.WarnCtx(ctx, "proof submitted for unknown quest",
			zap.String("chain", event.ContractAddress),
			zap.Uint64("quest", *event.QuestID),
			zap.String("id", event.ID()))
		return nil
	}

	statusKey := domain.QuestStatusKey(event.ContractAddress, *event.QuestID, *event.Sender)
	status, err := tx.GetQuestStatus(ctx, statusKey)
	if err != nil {
		return err
	}
	if status == nil {
		status = &schema.QuestStatus{
			ID:           statusKey,
			QuestID:      questKey,
			QuestChainID: event.ContractAddress,
			UserID:       *event.Sender,
			IndexedAt:    p.clock.Now(),
		}
	}

	status.Status = schema.StatusReview
	status.UpdatedAt = event.Timestamp

	entities.detach(statusKey)
	entities.attach(statusKey, schema.StatusReview)

	return p.save(ctx, tx, entities, status)
}

// handleProofReviewed settles a review as passed or failed. A review
// can land before its submission when backfills overlap, so a missing
// status is created the same way handleProofSubmitted creates one.
func (p *Pipeline) handleProofReviewed(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	questKey := domain.QuestKey(event.ContractAddress, *event.QuestID)
	statusKey := domain.QuestStatusKey(event.ContractAddress, *event.QuestID, *event.Quester)

	entities, err := p.loadStatusEntities(ctx, tx, event.ContractAddress, questKey, *event.Quester)
	if err != nil {
		return err
	}
	if entities == nil {
		logger.WarnCtx(ctx, "review event for unknown quest",
			zap.String("chain", event.ContractAddress),
			zap.Uint64("quest", *event.QuestID),
			zap.String("id", event.ID()))
		return nil
	}

	status, err := tx.GetQuestStatus(ctx, statusKey)
	if err != nil {
		return err
	}
	if status == nil {
		status = &schema.QuestStatus{
			ID:           statusKey,
			QuestID:      questKey,
			QuestChainID: event.ContractAddress,
			UserID:       *event.Quester,
			IndexedAt:    p.clock.Now(),
		}
	}

	// The reviewer is an actor too and gets a user record
	if _, err := p.ensureUser(ctx, tx, *event.Sender); err != nil {
		return err
	}

	newStatus := schema.StatusFail
	if *event.Success {
		newStatus = schema.StatusPass
	}

	status.Status = newStatus
	status.UpdatedAt = event.Timestamp

	entities.detach(statusKey)
	entities.attach(statusKey, newStatus)

	return p.save(ctx, tx, entities, status)
}
