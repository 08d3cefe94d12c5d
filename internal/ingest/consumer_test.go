package ingest

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/pipeline"
	"github.com/quest-chains/qc-indexer/internal/providers/jetstream"
	"github.com/quest-chains/qc-indexer/internal/store"
	"github.com/quest-chains/qc-indexer/internal/store/schema"
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

// =============================================================================
// Fakes
// =============================================================================

type fakeNatsConn struct {
	closed atomic.Bool
}

func (c *fakeNatsConn) Close()               { c.closed.Store(true) }
func (c *fakeNatsConn) LastError() error     { return nil }
func (c *fakeNatsConn) ConnectedUrl() string { return "nats://fake:4222" }

type fakeConsumeContext struct{}

func (fakeConsumeContext) Stop()                   {}
func (fakeConsumeContext) Drain()                  {}
func (fakeConsumeContext) Closed() <-chan struct{} { return nil }

type fakeConsumer struct {
	handlerReady chan adapter.MessageHandler
}

func (c *fakeConsumer) Consume(handler adapter.MessageHandler, opts ...natsjs.PullConsumeOpt) (adapter.ConsumeContext, error) {
	c.handlerReady <- handler
	return fakeConsumeContext{}, nil
}

func (c *fakeConsumer) Info(ctx context.Context) (*natsjs.ConsumerInfo, error) {
	return &natsjs.ConsumerInfo{Name: "test-consumer"}, nil
}

type fakeJetStream struct {
	consumer *fakeConsumer

	mu             sync.Mutex
	consumerConfig natsjs.ConsumerConfig
}

func (j *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
	return &natsjs.PubAck{}, nil
}

func (j *fakeJetStream) CreateOrUpdateConsumer(ctx context.Context, stream string, cfg natsjs.ConsumerConfig) (adapter.Consumer, error) {
	j.mu.Lock()
	j.consumerConfig = cfg
	j.mu.Unlock()
	return j.consumer, nil
}

func (j *fakeJetStream) config() natsjs.ConsumerConfig {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.consumerConfig
}

type fakeNatsJetStream struct {
	nc         *fakeNatsConn
	js         *fakeJetStream
	connectErr error
}

func (f *fakeNatsJetStream) Connect(url string, options ...nats.Option) (adapter.NatsConn, adapter.JetStream, error) {
	if f.connectErr != nil {
		return nil, nil, f.connectErr
	}
	return f.nc, f.js, nil
}

type fakeMessage struct {
	data   []byte
	acked  atomic.Bool
	naked  atomic.Bool
	termed atomic.Bool
}

func (m *fakeMessage) Data() []byte { return m.data }

func (m *fakeMessage) Metadata() (*natsjs.MsgMetadata, error) {
	return &natsjs.MsgMetadata{NumDelivered: 1}, nil
}

func (m *fakeMessage) Ack() error  { m.acked.Store(true); return nil }
func (m *fakeMessage) Nak() error  { m.naked.Store(true); return nil }
func (m *fakeMessage) Term() error { m.termed.Store(true); return nil }

// fakeStore covers the store calls a proof_submitted event on an unknown
// quest reaches; everything else panics via the embedded nil interface
type fakeStore struct {
	store.Store

	markErr error

	mu      sync.Mutex
	cursors map[string]uint64
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *fakeStore) MarkEventProcessed(ctx context.Context, id string, blockNumber, logIndex uint64) (bool, error) {
	if s.markErr != nil {
		return false, s.markErr
	}
	return true, nil
}

func (s *fakeStore) GetQuestChain(ctx context.Context, id string) (*schema.QuestChain, error) {
	return nil, nil
}

func (s *fakeStore) GetQuest(ctx context.Context, id string) (*schema.Quest, error) {
	return nil, nil
}

func (s *fakeStore) GetUser(ctx context.Context, id string) (*schema.User, error) {
	return nil, nil
}

func (s *fakeStore) SaveUser(ctx context.Context, user *schema.User) error {
	return nil
}

func (s *fakeStore) SetBlockCursor(ctx context.Context, network string, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[network] = blockNumber
	return nil
}

func (s *fakeStore) cursor(network string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[network]
}

// =============================================================================
// Helpers
// =============================================================================

type consumerHarness struct {
	consumer *Consumer
	js       *fakeJetStream
	nc       *fakeNatsConn
	store    *fakeStore
	handler  chan adapter.MessageHandler
}

func setupTestConsumer(t *testing.T, fs *fakeStore) *consumerHarness {
	t.Helper()

	handlerReady := make(chan adapter.MessageHandler, 1)
	js := &fakeJetStream{consumer: &fakeConsumer{handlerReady: handlerReady}}
	nc := &fakeNatsConn{}

	eventPipeline := pipeline.NewPipeline(fs, nil, nil, nil, adapter.NewClock())

	consumer, err := NewConsumer(
		Config{
			ConsumerName:   "test-consumer",
			AckWaitTimeout: 30 * time.Second,
			MaxDeliver:     5,
		},
		jetstream.Config{
			URL:        "nats://fake:4222",
			StreamName: "QUEST_CHAIN_EVENTS",
		},
		&fakeNatsJetStream{nc: nc, js: js},
		eventPipeline,
		fs,
		adapter.NewJSON(),
	)
	require.NoError(t, err)

	return &consumerHarness{
		consumer: consumer,
		js:       js,
		nc:       nc,
		store:    fs,
		handler:  handlerReady,
	}
}

// runConsumer starts Run in the background and returns the message handler
// registered with the fake subscription plus a shutdown func
func runConsumer(t *testing.T, h *consumerHarness) (adapter.MessageHandler, func() error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.consumer.Run(ctx)
	}()

	var handler adapter.MessageHandler
	select {
	case handler = <-h.handler:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("consumer did not start consuming")
	}

	return handler, func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("consumer did not shut down")
			return nil
		}
	}
}

func encodeEvent(t *testing.T, event *domain.ChainEvent) []byte {
	t.Helper()
	data, err := adapter.NewJSON().Marshal(event)
	require.NoError(t, err)
	return data
}

func submitEvent() *domain.ChainEvent {
	sender := "0xabcabcabcabcabcabcabcabcabcabcabcabcabca"
	questID := uint64(0)
	return &domain.ChainEvent{
		Network:         domain.NetworkGnosisMainnet,
		EventType:       domain.EventTypeProofSubmitted,
		ContractAddress: "0x1111111111111111111111111111111111111111",
		BlockNumber:     4200,
		LogIndex:        3,
		TxHash:          "0xsubmit",
		Timestamp:       time.Unix(1700000000, 0),
		Sender:          &sender,
		QuestID:         &questID,
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestConsumer_Run_AcksAndAdvancesCursor(t *testing.T) {
	fs := &fakeStore{cursors: map[string]uint64{}}
	h := setupTestConsumer(t, fs)

	handler, shutdown := runConsumer(t, h)

	msg := &fakeMessage{data: encodeEvent(t, submitEvent())}
	handler(msg)

	require.Eventually(t, func() bool {
		return msg.acked.Load()
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, msg.naked.Load())
	assert.False(t, msg.termed.Load())
	assert.Equal(t, uint64(4200), fs.cursor("eip155:100"))

	// Serial delivery is what keeps events in block order
	cfg := h.js.config()
	assert.Equal(t, "test-consumer", cfg.Durable)
	assert.Equal(t, natsjs.AckExplicitPolicy, cfg.AckPolicy)
	assert.Equal(t, 1, cfg.MaxAckPending)
	assert.Equal(t, "events.>", cfg.FilterSubject)

	assert.ErrorIs(t, shutdown(), context.Canceled)
}

func TestConsumer_Run_TerminatesUnparseableMessage(t *testing.T) {
	fs := &fakeStore{cursors: map[string]uint64{}}
	h := setupTestConsumer(t, fs)

	handler, shutdown := runConsumer(t, h)

	msg := &fakeMessage{data: []byte("not json")}
	handler(msg)

	require.Eventually(t, func() bool {
		return msg.termed.Load()
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, msg.acked.Load())
	assert.False(t, msg.naked.Load())
	assert.Equal(t, uint64(0), fs.cursor("eip155:100"))

	assert.ErrorIs(t, shutdown(), context.Canceled)
}

func TestConsumer_Run_NaksOnPipelineError(t *testing.T) {
	fs := &fakeStore{
		cursors: map[string]uint64{},
		markErr: errors.New("connection reset"),
	}
	h := setupTestConsumer(t, fs)

	handler, shutdown := runConsumer(t, h)

	msg := &fakeMessage{data: encodeEvent(t, submitEvent())}
	handler(msg)

	require.Eventually(t, func() bool {
		return msg.naked.Load()
	}, 5*time.Second, 10*time.Millisecond)

	// NAK without ACK leaves the message for redelivery; the cursor must
	// not move past an unapplied event
	assert.False(t, msg.acked.Load())
	assert.Equal(t, uint64(0), fs.cursor("eip155:100"))

	assert.ErrorIs(t, shutdown(), context.Canceled)
}

func TestConsumer_Close(t *testing.T) {
	fs := &fakeStore{cursors: map[string]uint64{}}
	h := setupTestConsumer(t, fs)

	h.consumer.Close()
	assert.True(t, h.nc.closed.Load())
}

func TestNewConsumer_ConnectError(t *testing.T) {
	_, err := NewConsumer(
		Config{ConsumerName: "test-consumer"},
		jetstream.Config{URL: "nats://unreachable:4222"},
		&fakeNatsJetStream{connectErr: errors.New("no route to host")},
		nil,
		nil,
		adapter.NewJSON(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}
