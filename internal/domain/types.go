package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Network represents the blockchain network identifier using CAIP-2 format
type Network string

const (
	NetworkEthereumMainnet Network = "eip155:1"
	NetworkPolygonMainnet  Network = "eip155:137"
	NetworkGnosisMainnet   Network = "eip155:100"
	NetworkEthereumSepolia Network = "eip155:11155111"
)

// IsValidNetwork checks if a network is supported
func IsValidNetwork(network Network) bool {
	return network == NetworkEthereumMainnet ||
		network == NetworkPolygonMainnet ||
		network == NetworkGnosisMainnet ||
		network == NetworkEthereumSepolia
}

// EventType represents the type of quest-chain event
type EventType string

const (
	// Factory-level
	EventTypeChainDeployed EventType = "chain_deployed"

	// Chain lifecycle
	EventTypeChainCreated EventType = "chain_created"
	EventTypeChainEdited  EventType = "chain_edited"

	// Quest lifecycle
	EventTypeQuestCreated EventType = "quest_created"
	EventTypeQuestEdited  EventType = "quest_edited"

	// Proof state machine
	EventTypeProofSubmitted EventType = "proof_submitted"
	EventTypeProofReviewed  EventType = "proof_reviewed"

	// Access control
	EventTypeRoleGranted EventType = "role_granted"
	EventTypeRoleRevoked EventType = "role_revoked"

	// Completion token (ERC1155)
	EventTypeTokenTransferSingle EventType = "token_transfer_single"
	EventTypeTokenURI            EventType = "token_uri"
)

// ChainEvent is a normalized quest-chain event. Exactly one event type is
// set; type-specific fields are nil when they do not apply. This is the
// format published to NATS and consumed by the dispatch loop.
type ChainEvent struct {
	Network         Network   `json:"network"`
	EventType       EventType `json:"event_type"`
	ContractAddress string    `json:"contract_address"` // emitting contract, lowercase hex
	BlockNumber     uint64    `json:"block_number"`
	LogIndex        uint64    `json:"log_index"`
	TxHash          string    `json:"tx_hash"`
	Timestamp       time.Time `json:"timestamp"` // block timestamp

	// chain_deployed
	FactoryIndex *uint64 `json:"factory_index,omitempty"`
	ChainAddress *string `json:"chain_address,omitempty"` // deployed quest chain

	// chain_created / chain_edited / quest_* / proof_* / token_uri
	Details *string `json:"details,omitempty"`

	// actor of the event: creator, editor, quester or reviewer
	Sender *string `json:"sender,omitempty"`

	// quest_* / proof_*
	QuestID *uint64 `json:"quest_id,omitempty"`

	// proof_reviewed
	Quester *string `json:"quester,omitempty"`
	Success *bool   `json:"success,omitempty"`

	// role_granted / role_revoked
	Role    *string `json:"role,omitempty"` // 32-byte role id, hex
	Account *string `json:"account,omitempty"`

	// token_transfer_single / token_uri
	FromAddress *string `json:"from_address,omitempty"`
	ToAddress   *string `json:"to_address,omitempty"`
	TokenNumber *uint64 `json:"token_number,omitempty"`
	Quantity    *uint64 `json:"quantity,omitempty"`
}

// ID returns the deterministic event identifier used for dedup. Two
// deliveries of the same on-chain log always produce the same id.
func (e *ChainEvent) ID() string {
	return fmt.Sprintf("%s:%d:%d", e.Network, e.BlockNumber, e.LogIndex)
}

// Valid performs a shallow sanity check of the type-specific fields
func (e *ChainEvent) Valid() bool {
	if !IsValidNetwork(e.Network) || e.ContractAddress == "" {
		return false
	}

	switch e.EventType {
	case EventTypeChainDeployed:
		return e.ChainAddress != nil
	case EventTypeChainCreated, EventTypeChainEdited:
		return e.Sender != nil && e.Details != nil
	case EventTypeQuestCreated, EventTypeQuestEdited:
		return e.Sender != nil && e.QuestID != nil && e.Details != nil
	case EventTypeProofSubmitted:
		return e.Sender != nil && e.QuestID != nil
	case EventTypeProofReviewed:
		return e.Sender != nil && e.Quester != nil && e.QuestID != nil && e.Success != nil
	case EventTypeRoleGranted, EventTypeRoleRevoked:
		return e.Role != nil && e.Account != nil
	case EventTypeTokenTransferSingle:
		return e.FromAddress != nil && e.ToAddress != nil && e.TokenNumber != nil
	case EventTypeTokenURI:
		return e.TokenNumber != nil && e.Details != nil
	default:
		return false
	}
}

// NormalizeAddress lowercases a hex address so that id comparisons are
// case-insensitive across the whole system
func NormalizeAddress(address string) string {
	return strings.ToLower(common.HexToAddress(address).Hex())
}

// QuestKey derives the Quest entity id from its chain address and quest number
func QuestKey(chainAddress string, questID uint64) string {
	return fmt.Sprintf("%s-%d", NormalizeAddress(chainAddress), questID)
}

// QuestStatusKey derives the QuestStatus entity id for a (quest, user) pair
func QuestStatusKey(chainAddress string, questID uint64, userAddress string) string {
	return fmt.Sprintf("%s-%s", QuestKey(chainAddress, questID), NormalizeAddress(userAddress))
}

// TokenKey derives the QuestChainToken entity id
func TokenKey(tokenContract string, tokenNumber uint64) string {
	return fmt.Sprintf("%s-%d", NormalizeAddress(tokenContract), tokenNumber)
}

// EditKey derives an edit-history record id. Block timestamp plus log index
// keeps same-block edits distinct.
func EditKey(parentID string, timestamp time.Time, logIndex uint64) string {
	return fmt.Sprintf("%s-%d-%d", parentID, timestamp.Unix(), logIndex)
}

// IsZeroAddress reports whether the address is the zero address. Empty
// strings count as zero, matching mint/burn transfer semantics.
func IsZeroAddress(address string) bool {
	return address == "" || NormalizeAddress(address) == ETHEREUM_ZERO_ADDRESS
}
