package ingest

import (
	"context"
	"fmt"
	"time"

	natsjs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/pipeline"
	"github.com/quest-chains/qc-indexer/internal/providers/jetstream"
	"github.com/quest-chains/qc-indexer/internal/store"
)

// Config holds the configuration for the event consumer
type Config struct {
	ConsumerName   string
	AckWaitTimeout time.Duration
	MaxDeliver     int
}

// Consumer pulls quest-chain events off JetStream and feeds them to the
// pipeline one at a time. MaxAckPending of 1 keeps delivery in stream order,
// which the read model depends on.
type Consumer struct {
	config   Config
	stream   string
	nc       adapter.NatsConn
	js       adapter.JetStream
	pipeline *pipeline.Pipeline
	store    store.Store
	json     adapter.JSON
}

// NewConsumer connects to NATS and creates an event consumer
func NewConsumer(
	cfg Config,
	jsCfg jetstream.Config,
	natsJS adapter.NatsJetStream,
	p *pipeline.Pipeline,
	s store.Store,
	jsonAdapter adapter.JSON,
) (*Consumer, error) {
	nc, js, err := natsJS.Connect(jsCfg.URL, jetstream.ConnectOptions(jsCfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &Consumer{
		config:   cfg,
		stream:   jsCfg.StreamName,
		nc:       nc,
		js:       js,
		pipeline: p,
		store:    s,
		json:     jsonAdapter,
	}, nil
}

// Run consumes events until the context is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	logger.Info("Starting event consumer",
		zap.String("stream", c.stream),
		zap.String("consumer", c.config.ConsumerName))

	consumerConfig := natsjs.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		AckPolicy:     natsjs.AckExplicitPolicy,
		AckWait:       c.config.AckWaitTimeout,
		MaxDeliver:    c.config.MaxDeliver,
		FilterSubject: "events.>",
		// Process strictly one message at a time to preserve
		// (block number, log index) order across the stream
		MaxAckPending: 1,
	}

	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.stream, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 100)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming messages")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down event consumer")
			return ctx.Err()
		case msg := <-msgChan:
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes a single NATS message
func (c *Consumer) handleMessage(ctx context.Context, msg adapter.Message) {
	metadata, _ := msg.Metadata()

	var event domain.ChainEvent
	if err := c.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"))
		// Terminate message for unparseable data
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	var deliveries uint64
	if metadata != nil {
		deliveries = metadata.NumDelivered
	}
	logger.Info("Received event",
		zap.String("network", string(event.Network)),
		zap.String("eventType", string(event.EventType)),
		zap.String("id", event.ID()),
		zap.String("txHash", event.TxHash),
		zap.Uint64("deliveryCount", deliveries))

	if err := c.pipeline.Handle(ctx, &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to process event"),
			zap.String("id", event.ID()))
		// NAK to retry
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}

	// Cursor advances are best effort; a stale cursor only means replayed
	// events, which the dedup ledger absorbs
	if err := c.store.SetBlockCursor(ctx, string(event.Network), event.BlockNumber); err != nil {
		logger.Error(err, zap.String("message", "Failed to advance block cursor"),
			zap.Uint64("block", event.BlockNumber))
	}
}

// Close closes the consumer and its NATS connection
func (c *Consumer) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
