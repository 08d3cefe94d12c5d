package backfill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/pipeline"
	"github.com/quest-chains/qc-indexer/internal/providers/ethereum"
	"github.com/quest-chains/qc-indexer/internal/store"
)

// Config holds the configuration for a backfill run
type Config struct {
	Network   domain.Network
	FromBlock uint64 // 0 resumes from the stored cursor
	ToBlock   uint64 // 0 means the latest block
	// Addresses restricts the run to specific contracts. Empty means all
	// tracked events; the pipeline drops logs from unknown contracts.
	Addresses []string
	// BatchSize is the number of blocks fetched and applied per cursor save
	BatchSize uint64
}

// Backfiller replays historical quest-chain events straight into the
// pipeline, bypassing NATS. Events are applied in (block, log index) order
// and deduplicated by the same ledger the live path uses, so a backfill can
// safely overlap already indexed ranges.
type Backfiller struct {
	client   ethereum.QuestChainsClient
	pipeline *pipeline.Pipeline
	store    store.Store
	config   Config
}

// NewBackfiller creates a backfiller
func NewBackfiller(client ethereum.QuestChainsClient, p *pipeline.Pipeline, s store.Store, cfg Config) *Backfiller {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50000
	}
	return &Backfiller{
		client:   client,
		pipeline: p,
		store:    s,
		config:   cfg,
	}
}

// Run replays the configured block range
func (b *Backfiller) Run(ctx context.Context) error {
	fromBlock := b.config.FromBlock
	if fromBlock == 0 {
		lastBlock, err := b.store.GetBlockCursor(ctx, string(b.config.Network))
		if err != nil {
			return fmt.Errorf("failed to get block cursor: %w", err)
		}
		fromBlock = lastBlock + 1
	}

	toBlock := b.config.ToBlock
	if toBlock == 0 {
		header, err := b.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to get latest block: %w", err)
		}
		toBlock = header.Number.Uint64()
	}

	if fromBlock > toBlock {
		logger.Info("Nothing to backfill",
			zap.Uint64("from", fromBlock),
			zap.Uint64("to", toBlock))
		return nil
	}

	logger.Info("Starting backfill",
		zap.String("network", string(b.config.Network)),
		zap.Uint64("from", fromBlock),
		zap.Uint64("to", toBlock),
		zap.Int("addresses", len(b.config.Addresses)))

	for batchFrom := fromBlock; batchFrom <= toBlock; batchFrom += b.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		batchTo := batchFrom + b.config.BatchSize - 1
		if batchTo > toBlock {
			batchTo = toBlock
		}

		events, err := b.client.FilterEvents(ctx, batchFrom, batchTo, b.config.Addresses)
		if err != nil {
			return fmt.Errorf("failed to fetch events for range %d-%d: %w", batchFrom, batchTo, err)
		}

		for i := range events {
			if err := b.pipeline.Handle(ctx, &events[i]); err != nil {
				return fmt.Errorf("failed to apply event %s: %w", events[i].ID(), err)
			}
		}

		if err := b.store.SetBlockCursor(ctx, string(b.config.Network), batchTo); err != nil {
			return fmt.Errorf("failed to save block cursor: %w", err)
		}

		logger.Info("Backfilled block range",
			zap.Uint64("from", batchFrom),
			zap.Uint64("to", batchTo),
			zap.Int("events", len(events)))
	}

	logger.Info("Backfill complete",
		zap.Uint64("from", fromBlock),
		zap.Uint64("to", toBlock))
	return nil
}
