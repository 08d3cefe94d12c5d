package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/messaging"
)

// Config holds the configuration for Ethereum subscription
type Config struct {
	WebSocketURL string         // WebSocket URL (e.g., wss://mainnet.infura.io/ws/v3/YOUR_PROJECT_ID)
	Network      domain.Network // e.g., "eip155:100" for Gnosis
}

type ethSubscriber struct {
	client  QuestChainsClient
	network domain.Network
}

// Event signatures
var (
	// Factory: NewQuestChain(uint256 indexed index, address questChain)
	chainDeployedEventSignature = crypto.Keccak256Hash([]byte("NewQuestChain(uint256,address)"))

	// Quest chain: QuestChainCreated(address indexed creator, string details)
	chainCreatedEventSignature = crypto.Keccak256Hash([]byte("QuestChainCreated(address,string)"))

	// Quest chain: QuestChainEdited(address indexed editor, string details)
	chainEditedEventSignature = crypto.Keccak256Hash([]byte("QuestChainEdited(address,string)"))

	// Quest chain: QuestCreated(address indexed creator, uint256 indexed questId, string details)
	questCreatedEventSignature = crypto.Keccak256Hash([]byte("QuestCreated(address,uint256,string)"))

	// Quest chain: QuestEdited(uint256 indexed questId, address indexed editor, string details)
	questEditedEventSignature = crypto.Keccak256Hash([]byte("QuestEdited(uint256,address,string)"))

	// Quest chain: ProofSubmitted(address indexed quester, uint256 indexed questId, string proof)
	proofSubmittedEventSignature = crypto.Keccak256Hash([]byte("ProofSubmitted(address,uint256,string)"))

	// Quest chain: ProofReviewed(address indexed reviewer, address indexed quester, uint256 indexed questId, bool success, string details)
	proofReviewedEventSignature = crypto.Keccak256Hash([]byte("ProofReviewed(address,address,uint256,bool,string)"))

	// OpenZeppelin AccessControl role events, all arguments indexed
	roleGrantedEventSignature = crypto.Keccak256Hash([]byte("RoleGranted(bytes32,address,address)"))
	roleRevokedEventSignature = crypto.Keccak256Hash([]byte("RoleRevoked(bytes32,address,address)"))

	// ERC1155 TransferSingle(address indexed operator, address indexed from, address indexed to, uint256 id, uint256 value)
	transferSingleEventSignature = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))

	// ERC1155 URI(string value, uint256 indexed id)
	uriEventSignature = crypto.Keccak256Hash([]byte("URI(string,uint256)"))
)

// TrackedEventSignatures returns the topic0 set of every event the indexer consumes
func TrackedEventSignatures() []common.Hash {
	return []common.Hash{
		chainDeployedEventSignature,
		chainCreatedEventSignature,
		chainEditedEventSignature,
		questCreatedEventSignature,
		questEditedEventSignature,
		proofSubmittedEventSignature,
		proofReviewedEventSignature,
		roleGrantedEventSignature,
		roleRevokedEventSignature,
		transferSingleEventSignature,
		uriEventSignature,
	}
}

// NewSubscriber creates a new Ethereum quest-chain event subscriber
func NewSubscriber(cfg Config, client QuestChainsClient) messaging.Subscriber {
	return &ethSubscriber{
		client:  client,
		network: cfg.Network,
	}
}

// SubscribeEvents subscribes to quest factory, quest chain and completion
// token events
func (s *ethSubscriber) SubscribeEvents(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
	query := ethereum.FilterQuery{
		Topics: [][]common.Hash{TrackedEventSignatures()},
	}
	if fromBlock > 0 {
		query.FromBlock = new(big.Int).SetUint64(fromBlock)
	}

	logs := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSubscriptionFailed, err)
	}
	defer func() {
		logger.InfoCtx(ctx, "Unsubscribing from ethereum event logs")
		sub.Unsubscribe()
		logger.InfoCtx(ctx, "Unsubscribed from ethereum event logs")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)
		case vLog := <-logs:
			event, err := s.client.ParseEventLog(ctx, vLog)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorCtx(ctx, err, zap.String("message", "Error parsing log"))
				continue
			}

			if event == nil {
				continue
			}

			if err := handler(event); err != nil {
				// Bail out so the caller can restart from the saved
				// cursor; logging and moving on would lose the event
				return fmt.Errorf("failed to handle event %s: %w", event.ID(), err)
			}
		}
	}
}

// GetLatestBlock returns the latest block number
func (s *ethSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// Close closes the connection
func (s *ethSubscriber) Close() {
	s.client.Close()
}
