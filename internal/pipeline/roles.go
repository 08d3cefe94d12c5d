package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/roles"
	"github.com/quest-chains/qc-indexer/internal/store"
)

// handleRoleChange applies a grant or revoke to exactly the membership list
// matching the event's role identifier. The contract emits one event per
// affected role, so cascading (owner implies admin and so on) is already
// unrolled on chain. Role events from contracts that are not tracked quest
// chains are ignored.
func (p *Pipeline) handleRoleChange(ctx context.Context, tx store.Store, event *domain.ChainEvent) error {
	chain, err := tx.GetQuestChain(ctx, event.ContractAddress)
	if err != nil {
		return err
	}
	if chain == nil {
		return nil
	}

	// Role ids are read from the contract per event so a degraded read
	// at deploy time never sticks; a constant the node still cannot
	// serve falls back to the id cached on the chain row.
	resolved := p.roles.Resolve(ctx, chain.ID)
	chainRoles := roles.ChainRoles{
		Owner:    pickRole(resolved.Owner, chain.OwnerRole),
		Admin:    pickRole(resolved.Admin, chain.AdminRole),
		Editor:   pickRole(resolved.Editor, chain.EditorRole),
		Reviewer: pickRole(resolved.Reviewer, chain.ReviewerRole),
	}
	chain.OwnerRole = chainRoles.Owner
	chain.AdminRole = chainRoles.Admin
	chain.EditorRole = chainRoles.Editor
	chain.ReviewerRole = chainRoles.Reviewer

	collection := chainRoles.CollectionFor(*event.Role)
	if collection == roles.CollectionNone {
		// Owner role or a role id this chain does not map to a list
		logger.InfoCtx(ctx, "ignoring unmapped role event",
			zap.String("chain", chain.ID),
			zap.String("role", *event.Role),
			zap.String("id", event.ID()))
		return nil
	}

	account := *event.Account
	user, err := p.ensureUser(ctx, tx, account)
	if err != nil {
		return err
	}

	granted := event.EventType == domain.EventTypeRoleGranted

	switch collection {
	case roles.CollectionAdmins:
		if granted {
			chain.Admins = chain.Admins.Append(account)
			user.AdminOf = user.AdminOf.Append(chain.ID)
		} else {
			chain.Admins = chain.Admins.Remove(account)
			user.AdminOf = user.AdminOf.Remove(chain.ID)
		}
	case roles.CollectionEditors:
		if granted {
			chain.Editors = chain.Editors.Append(account)
			user.EditorOf = user.EditorOf.Append(chain.ID)
		} else {
			chain.Editors = chain.Editors.Remove(account)
			user.EditorOf = user.EditorOf.Remove(chain.ID)
		}
	case roles.CollectionReviewer:
		if granted {
			chain.Reviewers = chain.Reviewers.Append(account)
			user.ReviewerOf = user.ReviewerOf.Append(chain.ID)
		} else {
			chain.Reviewers = chain.Reviewers.Remove(account)
			user.ReviewerOf = user.ReviewerOf.Remove(chain.ID)
		}
	}

	if err := tx.SaveQuestChain(ctx, chain); err != nil {
		return err
	}
	return tx.SaveUser(ctx, user)
}

func pickRole(fresh, cached string) string {
	if fresh == domain.ZERO_ROLE {
		return cached
	}
	return fresh
}
