package messaging

import (
	"context"

	"github.com/quest-chains/qc-indexer/internal/domain"
)

// EventHandler is called when a new quest-chain event is received
type EventHandler func(event *domain.ChainEvent) error

// Subscriber defines the interface for subscribing to on-chain quest events
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeEvents subscribes to quest-chain events starting at fromBlock
	// (0 for latest); handler is called once per parsed event
	SubscribeEvents(ctx context.Context, fromBlock uint64, handler EventHandler) error

	// GetLatestBlock returns the latest block number
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection and cleans up resources
	Close()
}
