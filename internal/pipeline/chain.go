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

// handleChainDeployed registers a freshly deployed quest chain contract.
// The creator is unknown at this point; the contract emits its creation
// event with the initializing account in the same transaction.
func (p *Pipeline) handleChainDeployed(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	chainAddress := *event.ChainAddress

	chainRoles := p.roles.Resolve(ctx, chainAddress)

	chain := &schema.QuestChain{
		ID:             chainAddress,
		FactoryAddress: event.ContractAddress,
		Network:        string(event.Network),
		CreatorID:      domain.ETHEREUM_ZERO_ADDRESS,
		CreationTxHash: event.TxHash,
		CreatedAt:      event.Timestamp,

		OwnerRole:    chainRoles.Owner,
		AdminRole:    chainRoles.Admin,
		EditorRole:   chainRoles.Editor,
		ReviewerRole: chainRoles.Reviewer,

		Admins:         schema.IDList{},
		Editors:        schema.IDList{},
		Reviewers:      schema.IDList{},
		QuestsPassed:   schema.IDList{},
		QuestsFailed:   schema.IDList{},
		QuestsInReview: schema.IDList{},

		IndexedAt: p.clock.Now(),
	}

	if err := tx.SaveQuestChain(ctx, chain); err != nil {
		return err
	}

	if err := tx.AddTrackedSource(ctx, &schema.TrackedSource{
		Address: chainAddress,
		Network: string(event.Network),
		AddedAt: p.clock.Now(),
	}); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "registered quest chain",
		zap.String("chain", chainAddress),
		zap.String("factory", event.ContractAddress),
		zap.Uint64("block", event.BlockNumber))
	return nil
}

// handleChainCreated populates a deployed chain with its creator and
// resolved metadata
func (p *Pipeline) handleChainCreated(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	chain, err := tx.GetQuestChain(ctx, event.ContractAddress)
	if err != nil {
		return err
	}
	if chain == nil {
		logger.WarnCtx(ctx, "creation event for unknown quest chain",
			zap.String("chain", event.ContractAddress),
			zap.String("id", event.ID()))
		return nil
	}

	if _, err := p.ensureUser(ctx, tx, *event.Sender); err != nil {
		return err
	}

	details := p.metadata.Resolve(ctx, *event.Details)

	chain.CreatorID = *event.Sender
	applyChainDetails(chain, details)

	return tx.SaveQuestChain(ctx, chain)
}

// handleChainEdited snapshots the chain's current metadata into the edit
// history, then overwrites it with the newly resolved details
func (p *Pipeline) handleChainEdited(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	chain, err := tx.GetQuestChain(ctx, event.ContractAddress)
	if err != nil {
		return err
	}
	if chain == nil {
		logger.WarnCtx(ctx, "edit event for unknown quest chain",
			zap.String("chain", event.ContractAddress),
			zap.String("id", event.ID()))
		return nil
	}

	if _, err := p.ensureUser(ctx, tx, *event.Sender); err != nil {
		return err
	}

	edit := &schema.QuestChainEdit{
		ID:           domain.EditKey(chain.ID, event.Timestamp, event.LogIndex),
		QuestChainID: chain.ID,
		EditorID:     *event.Sender,
		EditedAt:     event.Timestamp,
		Details:      chain.Details,
		Name:         chain.Name,
		Description:  chain.Description,
		ImageURL:     chain.ImageURL,
		ExternalURL:  chain.ExternalURL,
	}
	if err := tx.CreateQuestChainEdit(ctx, edit); err != nil {
		return err
	}

	details := p.metadata.Resolve(ctx, *event.Details)
	applyChainDetails(chain, details)

	return tx.SaveQuestChain(ctx, chain)
}

func applyChainDetails(chain *schema.QuestChain, details *metadata.Details) {
	chain.Details = details.Details
	chain.DetailsHash = details.DetailsHash
	chain.Name = details.Name
	chain.Description = details.Description
	chain.ImageURL = details.ImageURL
	chain.ExternalURL = details.ExternalURL
	chain.Metadata = datatypes.JSON(details.Document)
}
