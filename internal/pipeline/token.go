package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/store"
	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

// resolveToken loads the token record for an event, lazily creating it when
// the emitting contract belongs to a tracked quest chain. Returns (nil, nil)
// for ERC1155 logs from unrelated contracts.
func (p *Pipeline) resolveToken(ctx context.Context, tx store.Store, event *domain.ChainEvent) (*schema.QuestChainToken, error) {
	tokenKey := domain.TokenKey(event.ContractAddress, *event.TokenNumber)

	token, err := tx.GetToken(ctx, tokenKey)
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}

	owning, err := p.client.OwningQuestChain(ctx, event.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOwningChainUnavailable, err)
	}
	if owning == "" {
		return nil, nil
	}

	chain, err := tx.GetQuestChain(ctx, owning)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, nil
	}

	return &schema.QuestChainToken{
		ID:           tokenKey,
		QuestChainID: chain.ID,
		TokenNumber:  *event.TokenNumber,
		Owners:       schema.IDList{},
		IndexedAt:    p.clock.Now(),
	}, nil
}

// handleTokenTransferSingle maintains the owner set of a completion token.
// The token is soulbound, so only mints and burns occur; anything else is
// logged and skipped.
func (p *Pipeline) handleTokenTransferSingle(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	mint := domain.IsZeroAddress(*event.FromAddress) && !domain.IsZeroAddress(*event.ToAddress)
	burn := !domain.IsZeroAddress(*event.FromAddress) && domain.IsZeroAddress(*event.ToAddress)

	if !mint && !burn {
		logger.WarnCtx(ctx, "skipping non-mint non-burn token transfer",
			zap.String("contract", event.ContractAddress),
			zap.String("from", *event.FromAddress),
			zap.String("to", *event.ToAddress),
			zap.String("id", event.ID()))
		return nil
	}

	token, err := p.resolveToken(ctx, tx, event)
	if err != nil {
		return err
	}
	if token == nil {
		return nil
	}

	if mint {
		if _, err := p.ensureUser(ctx, tx, *event.ToAddress); err != nil {
			return err
		}
		token.Owners = token.Owners.Append(*event.ToAddress)
	} else {
		token.Owners = token.Owners.Remove(*event.FromAddress)
	}

	return tx.SaveToken(ctx, token)
}

// handleTokenURI refreshes a token's resolved metadata, creating the token
// record on first sight
func (p *Pipeline) handleTokenURI(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	token, err := p.resolveToken(ctx, tx, event)
	if err != nil {
		return err
	}
	if token == nil {
		return nil
	}

	details := p.metadata.ResolveToken(ctx, *event.Details)

	token.Details = details.Details
	token.Name = details.Name
	token.Description = details.Description
	token.ImageURL = details.ImageURL
	token.ExternalURL = details.ExternalURL
	token.AnimationURL = details.AnimationURL
	token.MimeType = details.MimeType
	token.Metadata = datatypes.JSON(details.Document)

	return tx.SaveToken(ctx, token)
}
