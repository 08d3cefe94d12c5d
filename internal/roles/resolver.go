package roles

import (
	"context"

	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/providers/ethereum"
)

// ChainRoles holds the bytes32 role identifiers of a quest chain contract.
// Roles that could not be read carry the zero-hash sentinel and will simply
// never match an incoming role event.
type ChainRoles struct {
	Owner    string `json:"owner"`
	Admin    string `json:"admin"`
	Editor   string `json:"editor"`
	Reviewer string `json:"reviewer"`
}

// Collection identifies which membership list of a chain a role maps to
type Collection string

const (
	CollectionNone     Collection = ""
	CollectionAdmins   Collection = "admins"
	CollectionEditors  Collection = "editors"
	CollectionReviewer Collection = "reviewers"
)

// CollectionFor maps a bytes32 role identifier to the chain membership list
// it controls. The owner role has no list of its own; granting it also
// grants the lower roles through separate events, so it maps to none.
func (r ChainRoles) CollectionFor(role string) Collection {
	switch role {
	case r.Admin:
		return CollectionAdmins
	case r.Editor:
		return CollectionEditors
	case r.Reviewer:
		return CollectionReviewer
	default:
		return CollectionNone
	}
}

// Resolver reads the role identifiers of quest chain contracts
//
//go:generate mockgen -source=resolver.go -destination=../mocks/roles_resolver.go -package=mocks -mock_names=Resolver=MockRolesResolver
type Resolver interface {
	// Resolve reads the four role constants of a quest chain contract.
	// Individual read failures degrade to the zero-hash sentinel instead
	// of failing the whole resolution.
	Resolve(ctx context.Context, chainAddress string) ChainRoles
}

type resolver struct {
	client ethereum.QuestChainsClient
}

// NewResolver creates a role resolver backed by contract reads
func NewResolver(client ethereum.QuestChainsClient) Resolver {
	return &resolver{client: client}
}

// Resolve reads the four role constants of a quest chain contract
func (r *resolver) Resolve(ctx context.Context, chainAddress string) ChainRoles {
	return ChainRoles{
		Owner:    r.roleConstant(ctx, chainAddress, "OWNER_ROLE"),
		Admin:    r.roleConstant(ctx, chainAddress, "ADMIN_ROLE"),
		Editor:   r.roleConstant(ctx, chainAddress, "EDITOR_ROLE"),
		Reviewer: r.roleConstant(ctx, chainAddress, "REVIEWER_ROLE"),
	}
}

func (r *resolver) roleConstant(ctx context.Context, chainAddress, roleName string) string {
	role, err := r.client.RoleConstant(ctx, chainAddress, roleName)
	if err != nil {
		logger.WarnCtx(ctx, "failed to read role constant",
			zap.String("chain", chainAddress),
			zap.String("role", roleName),
			zap.Error(err))
		return domain.ZERO_ROLE
	}
	return role
}
