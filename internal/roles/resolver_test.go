package roles_test

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"testing"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/roles"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// fakeRoleClient serves role constants by name
type fakeRoleClient struct {
	constants map[string]string
	errs      map[string]error
}

func (c *fakeRoleClient) ParseEventLog(ctx context.Context, vLog types.Log) (*domain.ChainEvent, error) {
	return nil, nil
}

func (c *fakeRoleClient) SubscribeFilterLogs(ctx context.Context, query goethereum.FilterQuery, ch chan<- types.Log) (goethereum.Subscription, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *fakeRoleClient) FilterEvents(ctx context.Context, fromBlock, toBlock uint64, addresses []string) ([]domain.ChainEvent, error) {
	return nil, nil
}

func (c *fakeRoleClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *fakeRoleClient) RoleConstant(ctx context.Context, contractAddress, roleName string) (string, error) {
	if err, ok := c.errs[roleName]; ok {
		return "", err
	}
	return c.constants[roleName], nil
}

func (c *fakeRoleClient) OwningQuestChain(ctx context.Context, tokenContract string) (string, error) {
	return "", nil
}

func (c *fakeRoleClient) Close() {}

func TestResolver_Resolve(t *testing.T) {
	client := &fakeRoleClient{constants: map[string]string{
		"OWNER_ROLE":    "0x04",
		"ADMIN_ROLE":    "0x01",
		"EDITOR_ROLE":   "0x02",
		"REVIEWER_ROLE": "0x03",
	}}

	resolver := roles.NewResolver(client)
	chainRoles := resolver.Resolve(context.Background(), "0x1111111111111111111111111111111111111111")

	assert.Equal(t, "0x04", chainRoles.Owner)
	assert.Equal(t, "0x01", chainRoles.Admin)
	assert.Equal(t, "0x02", chainRoles.Editor)
	assert.Equal(t, "0x03", chainRoles.Reviewer)
}

func TestResolver_Resolve_PartialFailure(t *testing.T) {
	client := &fakeRoleClient{
		constants: map[string]string{
			"OWNER_ROLE":    "0x04",
			"ADMIN_ROLE":    "0x01",
			"REVIEWER_ROLE": "0x03",
		},
		errs: map[string]error{
			"EDITOR_ROLE": fmt.Errorf("connection refused"),
		},
	}

	resolver := roles.NewResolver(client)
	chainRoles := resolver.Resolve(context.Background(), "0x1111111111111111111111111111111111111111")

	// A single failed read degrades to the sentinel, the rest stay intact
	assert.Equal(t, domain.ZERO_ROLE, chainRoles.Editor)
	assert.Equal(t, "0x01", chainRoles.Admin)
	assert.Equal(t, "0x03", chainRoles.Reviewer)
}

func TestChainRoles_CollectionFor(t *testing.T) {
	chainRoles := roles.ChainRoles{
		Owner:    "0x04",
		Admin:    "0x01",
		Editor:   "0x02",
		Reviewer: "0x03",
	}

	assert.Equal(t, roles.CollectionAdmins, chainRoles.CollectionFor("0x01"))
	assert.Equal(t, roles.CollectionEditors, chainRoles.CollectionFor("0x02"))
	assert.Equal(t, roles.CollectionReviewer, chainRoles.CollectionFor("0x03"))
	// The owner role cascades through separate grant events and maps to no list
	assert.Equal(t, roles.CollectionNone, chainRoles.CollectionFor("0x04"))
	assert.Equal(t, roles.CollectionNone, chainRoles.CollectionFor("0xff"))
}
