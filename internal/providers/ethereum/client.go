package ethereum

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/domain"
)

// QuestChainsClient wraps an Ethereum node connection with quest-chain
// specific log parsing and contract reads
type QuestChainsClient interface {
	// ParseEventLog parses an Ethereum log into a normalized quest-chain event.
	// Returns (nil, nil) for logs the indexer does not track.
	ParseEventLog(ctx context.Context, vLog types.Log) (*domain.ChainEvent, error)

	// SubscribeFilterLogs subscribes to filter logs
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)

	// FilterEvents fetches and parses all quest-chain events in a block
	// range, ordered by (block number, log index). An empty addresses slice
	// matches every contract.
	FilterEvents(ctx context.Context, fromBlock, toBlock uint64, addresses []string) ([]domain.ChainEvent, error)

	// HeaderByNumber returns a header by number
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)

	// RoleConstant reads a public bytes32 role constant (e.g. "ADMIN_ROLE")
	// from a quest chain contract
	RoleConstant(ctx context.Context, contractAddress, roleName string) (string, error)

	// OwningQuestChain reads the quest chain address that owns a completion
	// token contract. Returns "" with no error when the contract does not
	// implement the getter; errors are transport failures worth retrying.
	OwningQuestChain(ctx context.Context, tokenContract string) (string, error)

	// Close closes the connection
	Close()
}

type questChainsClient struct {
	network domain.Network
	client  adapter.EthClient
	clock   adapter.Clock
}

// NewClient creates a quest-chains client for a network
func NewClient(network domain.Network, client adapter.EthClient, clock adapter.Clock) QuestChainsClient {
	return &questChainsClient{network: network, client: client, clock: clock}
}

func mustArguments(typeNames ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(typeNames))
	for _, typeName := range typeNames {
		t, err := abi.NewType(typeName, "", nil)
		if err != nil {
			panic(err)
		}
		args = append(args, abi.Argument{Type: t})
	}
	return args
}

// Non-indexed argument layouts of the tracked events
var (
	addressArgs    = mustArguments("address")
	stringArgs     = mustArguments("string")
	boolStringArgs = mustArguments("bool", "string")
	uint256x2Args  = mustArguments("uint256", "uint256")
)

// SubscribeFilterLogs subscribes to filter logs
func (c *questChainsClient) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.client.SubscribeFilterLogs(ctx, query, ch)
}

// HeaderByNumber returns a header by number
func (c *questChainsClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.client.HeaderByNumber(ctx, number)
}

// Close closes the connection
func (c *questChainsClient) Close() {
	c.client.Close()
}

// FilterEvents fetches and parses all quest-chain events in a block range
func (c *questChainsClient) FilterEvents(ctx context.Context, fromBlock, toBlock uint64, addresses []string) ([]domain.ChainEvent, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var contractAddresses []common.Address
	for _, address := range addresses {
		contractAddresses = append(contractAddresses, common.HexToAddress(address))
	}

	// Query in fixed-size chunks to stay under provider log limits
	const chunkSize = uint64(10000)

	var events []domain.ChainEvent
	for chunkFrom := fromBlock; chunkFrom <= toBlock; chunkFrom += chunkSize {
		chunkTo := chunkFrom + chunkSize - 1
		if chunkTo > toBlock {
			chunkTo = toBlock
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(chunkFrom),
			ToBlock:   new(big.Int).SetUint64(chunkTo),
			Addresses: contractAddresses,
			Topics:    [][]common.Hash{TrackedEventSignatures()},
		}

		logs, err := c.client.FilterLogs(timeoutCtx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to filter logs for range %d-%d: %w", chunkFrom, chunkTo, err)
		}

		for _, vLog := range logs {
			event, err := c.ParseEventLog(timeoutCtx, vLog)
			if err != nil {
				return nil, fmt.Errorf("failed to parse log %s:%d: %w", vLog.TxHash.Hex(), vLog.Index, err)
			}
			if event == nil {
				continue
			}
			events = append(events, *event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	return events, nil
}

// ParseEventLog parses an Ethereum log into a normalized quest-chain event
func (c *questChainsClient) ParseEventLog(ctx context.Context, vLog types.Log) (*domain.ChainEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, nil
	}

	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(vLog.BlockNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to get block header: %w", err)
	}

	event := &domain.ChainEvent{
		Network:         c.network,
		ContractAddress: domain.NormalizeAddress(vLog.Address.Hex()),
		BlockNumber:     vLog.BlockNumber,
		LogIndex:        uint64(vLog.Index),
		TxHash:          vLog.TxHash.Hex(),
		Timestamp:       c.clock.Unix(int64(header.Time), 0), //nolint:gosec,G115 // header.Time is a uint64 from geth which is safe to cast
	}

	switch vLog.Topics[0] {
	case chainDeployedEventSignature:
		// NewQuestChain(uint256 indexed index, address questChain)
		if len(vLog.Topics) != 2 {
			return nil, fmt.Errorf("invalid NewQuestChain event: expected 2 topics, got %d", len(vLog.Topics))
		}
		values, err := addressArgs.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack NewQuestChain data: %w", err)
		}

		event.EventType = domain.EventTypeChainDeployed
		factoryIndex := new(big.Int).SetBytes(vLog.Topics[1].Bytes()).Uint64()
		event.FactoryIndex = &factoryIndex
		chainAddress := domain.NormalizeAddress(values[0].(common.Address).Hex())
		event.ChainAddress = &chainAddress

	case chainCreatedEventSignature:
		// QuestChainCreated(address indexed creator, string details)
		return c.parseActorDetailsEvent(event, vLog, domain.EventTypeChainCreated)

	case chainEditedEventSignature:
		// QuestChainEdited(address indexed editor, string details)
		return c.parseActorDetailsEvent(event, vLog, domain.EventTypeChainEdited)

	case questCreatedEventSignature:
		// QuestCreated(address indexed creator, uint256 indexed questId, string details)
		return c.parseQuestDetailsEvent(event, vLog, domain.EventTypeQuestCreated, 1, 2)

	case questEditedEventSignature:
		// QuestEdited(uint256 indexed questId, address indexed editor, string details)
		return c.parseQuestDetailsEvent(event, vLog, domain.EventTypeQuestEdited, 2, 1)

	case proofSubmittedEventSignature:
		// ProofSubmitted(address indexed quester, uint256 indexed questId, string proof)
		return c.parseQuestDetailsEvent(event, vLog, domain.EventTypeProofSubmitted, 1, 2)

	case proofReviewedEventSignature:
		// ProofReviewed(address indexed reviewer, address indexed quester, uint256 indexed questId, bool success, string details)
		if len(vLog.Topics) != 4 {
			return nil, fmt.Errorf("invalid ProofReviewed event: expected 4 topics, got %d", len(vLog.Topics))
		}
		values, err := boolStringArgs.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack ProofReviewed data: %w", err)
		}

		event.EventType = domain.EventTypeProofReviewed
		sender := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[1].Bytes()).Hex())
		event.Sender = &sender
		quester := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[2].Bytes()).Hex())
		event.Quester = &quester
		questID := new(big.Int).SetBytes(vLog.Topics[3].Bytes()).Uint64()
		event.QuestID = &questID
		success := values[0].(bool)
		event.Success = &success
		details := values[1].(string)
		event.Details = &details

	case roleGrantedEventSignature, roleRevokedEventSignature:
		// OpenZeppelin AccessControl:
		// RoleGranted(bytes32 indexed role, address indexed account, address indexed sender)
		// RoleRevoked(bytes32 indexed role, address indexed account, address indexed sender)
		if len(vLog.Topics) != 4 {
			return nil, fmt.Errorf("invalid role event: expected 4 topics, got %d", len(vLog.Topics))
		}

		if vLog.Topics[0] == roleGrantedEventSignature {
			event.EventType = domain.EventTypeRoleGranted
		} else {
			event.EventType = domain.EventTypeRoleRevoked
		}
		role := vLog.Topics[1].Hex()
		event.Role = &role
		account := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[2].Bytes()).Hex())
		event.Account = &account
		sender := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[3].Bytes()).Hex())
		event.Sender = &sender

	case transferSingleEventSignature:
		// ERC1155 TransferSingle(address indexed operator, address indexed from, address indexed to, uint256 id, uint256 value)
		if len(vLog.Topics) != 4 {
			return nil, fmt.Errorf("invalid TransferSingle event: expected 4 topics, got %d", len(vLog.Topics))
		}
		values, err := uint256x2Args.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack TransferSingle data: %w", err)
		}

		event.EventType = domain.EventTypeTokenTransferSingle
		fromAddress := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[2].Bytes()).Hex())
		event.FromAddress = &fromAddress
		toAddress := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[3].Bytes()).Hex())
		event.ToAddress = &toAddress
		tokenNumber := values[0].(*big.Int).Uint64()
		event.TokenNumber = &tokenNumber
		quantity := values[1].(*big.Int).Uint64()
		event.Quantity = &quantity

	case uriEventSignature:
		// ERC1155 URI(string value, uint256 indexed id)
		if len(vLog.Topics) != 2 {
			return nil, fmt.Errorf("invalid URI event: expected 2 topics, got %d", len(vLog.Topics))
		}
		values, err := stringArgs.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack URI data: %w", err)
		}

		event.EventType = domain.EventTypeTokenURI
		tokenNumber := new(big.Int).SetBytes(vLog.Topics[1].Bytes()).Uint64()
		event.TokenNumber = &tokenNumber
		details := values[0].(string)
		event.Details = &details

	default:
		return nil, nil
	}

	return event, nil
}

// parseActorDetailsEvent parses events of shape (address indexed actor, string details)
func (c *questChainsClient) parseActorDetailsEvent(event *domain.ChainEvent, vLog types.Log, eventType domain.EventType) (*domain.ChainEvent, error) {
	if len(vLog.Topics) != 2 {
		return nil, fmt.Errorf("invalid %s event: expected 2 topics, got %d", eventType, len(vLog.Topics))
	}
	values, err := stringArgs.Unpack(vLog.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s data: %w", eventType, err)
	}

	event.EventType = eventType
	sender := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[1].Bytes()).Hex())
	event.Sender = &sender
	details := values[0].(string)
	event.Details = &details
	return event, nil
}

// parseQuestDetailsEvent parses events carrying an indexed actor, an indexed
// quest id and a non-indexed details string
func (c *questChainsClient) parseQuestDetailsEvent(event *domain.ChainEvent, vLog types.Log, eventType domain.EventType, actorTopic, questTopic int) (*domain.ChainEvent, error) {
	if len(vLog.Topics) != 3 {
		return nil, fmt.Errorf("invalid %s event: expected 3 topics, got %d", eventType, len(vLog.Topics))
	}
	values, err := stringArgs.Unpack(vLog.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s data: %w", eventType, err)
	}

	event.EventType = eventType
	sender := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[actorTopic].Bytes()).Hex())
	event.Sender = &sender
	questID := new(big.Int).SetBytes(vLog.Topics[questTopic].Bytes()).Uint64()
	event.QuestID = &questID
	details := values[0].(string)
	event.Details = &details
	return event, nil
}

// RoleConstant reads a public bytes32 role constant from a quest chain contract
func (c *questChainsClient) RoleConstant(ctx context.Context, contractAddress, roleName string) (string, error) {
	// Role constants are public bytes32 getters, e.g. ADMIN_ROLE() returns (bytes32)
	roleABI, err := abi.JSON(strings.NewReader(fmt.Sprintf(`[{"constant":true,"inputs":[],"name":"%s","outputs":[{"name":"","type":"bytes32"}],"payable":false,"stateMutability":"view","type":"function"}]`, roleName)))
	if err != nil {
		return "", fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := roleABI.Pack(roleName)
	if err != nil {
		return "", fmt.Errorf("failed to pack data: %w", err)
	}

	contractAddr := common.HexToAddress(contractAddress)
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call contract: %w", err)
	}

	var role [32]byte
	if err := roleABI.UnpackIntoInterface(&role, roleName, result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}

	return "0x" + hex.EncodeToString(role[:]), nil
}

// OwningQuestChain reads the quest chain address that owns a completion
// token contract. The topic subscription also delivers ERC1155 logs from
// unrelated contracts, so a revert or an empty result means "not a quest
// chain token" and maps to ("", nil).
func (c *questChainsClient) OwningQuestChain(ctx context.Context, tokenContract string) (string, error) {
	// Token contract exposes questChain() returns (address)
	questChainABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[],"name":"questChain","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return "", fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := questChainABI.Pack("questChain")
	if err != nil {
		return "", fmt.Errorf("failed to pack data: %w", err)
	}

	contractAddr := common.HexToAddress(tokenContract)
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}, nil)
	if err != nil {
		if strings.Contains(err.Error(), "execution reverted") {
			return "", nil
		}
		return "", fmt.Errorf("failed to call contract: %w", err)
	}
	if len(result) == 0 {
		return "", nil
	}

	var owner common.Address
	if err := questChainABI.UnpackIntoInterface(&owner, "questChain", result); err != nil {
		return "", nil
	}

	return domain.NormalizeAddress(owner.Hex()), nil
}
