package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/metadata"
	"github.com/quest-chains/qc-indexer/internal/providers/ethereum"
	"github.com/quest-chains/qc-indexer/internal/roles"
	"github.com/quest-chains/qc-indexer/internal/store"
	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

// Pipeline projects ordered quest-chain events onto the entity store. Every
// event is handled inside one database transaction together with its dedup
// ledger entry, so a replayed event can never apply its mutation twice.
type Pipeline struct {
	store    store.Store
	metadata metadata.Resolver
	roles    roles.Resolver
	client   ethereum.QuestChainsClient
	clock    adapter.Clock
}

// NewPipeline creates an event pipeline
func NewPipeline(
	s store.Store,
	metadataResolver metadata.Resolver,
	rolesResolver roles.Resolver,
	client ethereum.QuestChainsClient,
	clock adapter.Clock,
) *Pipeline {
	return &Pipeline{
		store:    s,
		metadata: metadataResolver,
		roles:    rolesResolver,
		client:   client,
		clock:    clock,
	}
}

// Handle applies one event to the read model. A nil return means the event
// is done (applied, deduplicated or skipped); a non-nil return means the
// delivery must be retried.
func (p *Pipeline) Handle(ctx context.Context, event *domain.ChainEvent) error {
	if !event.Valid() {
		logger.WarnCtx(ctx, "dropping malformed event",
			zap.String("eventType", string(event.EventType)),
			zap.String("id", event.ID()))
		return nil
	}

	return p.store.WithTx(ctx, func(tx store.Store) error {
		first, err := tx.MarkEventProcessed(ctx, event.ID(), event.BlockNumber, event.LogIndex)
		if err != nil {
			return err
		}
		if !first {
			logger.InfoCtx(ctx, "skipping already processed event",
				zap.String("id", event.ID()),
				zap.String("eventType", string(event.EventType)))
			return nil
		}

		switch event.EventType {
		case domain.EventTypeChainDeployed:
			return p.handleChainDeployed(ctx, tx, event)
		case domain.EventTypeChainCreated:
			return p.handleChainCreated(ctx, tx, event)
		case domain.EventTypeChainEdited:
			return p.handleChainEdited(ctx, tx, event)
		case domain.EventTypeQuestCreated:
			return p.handleQuestCreated(ctx, tx, event)
		case domain.EventTypeQuestEdited:
			return p.handleQuestEdited(ctx, tx, event)
		case domain.EventTypeProofSubmitted:
			return p.handleProofSubmitted(ctx, tx, event)
		case domain.EventTypeProofReviewed:
			return p.handleProofReviewed(ctx, tx, event)
		case domain.EventTypeRoleGranted, domain.EventTypeRoleRevoked:
			return p.handleRoleChange(ctx, tx, event)
		case domain.EventTypeTokenTransferSingle:
			return p.handleTokenTransferSingle(ctx, tx, event)
		case domain.EventTypeTokenURI:
			return p.handleTokenURI(ctx, tx, event)
		default:
			return fmt.Errorf("%w: %s", domain.ErrUnknownEventType, event.EventType)
		}
	})
}

// ensureUser fetches a user record, creating an empty one on first reference
func (p *Pipeline) ensureUser(ctx context.Context, tx store.Store, id string) (*schema.User, error) {
	user, err := tx.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &schema.User{
		ID:             id,
		AdminOf:        schema.IDList{},
		EditorOf:       schema.IDList{},
		ReviewerOf:     schema.IDList{},
		QuestsPassed:   schema.IDList{},
		QuestsFailed:   schema.IDList{},
		QuestsInReview: schema.IDList{},
		IndexedAt:      p.clock.Now(),
	}
	if err := tx.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
