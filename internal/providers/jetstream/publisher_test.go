package jetstream_test

import (
	"context"
	"os"
	"testing"

	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/providers/jetstream"
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

type publishedMessage struct {
	subject string
	data    []byte
}

// fakeJetStream records published messages
type fakeJetStream struct {
	published []publishedMessage
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
	f.published = append(f.published, publishedMessage{subject: subject, data: data})
	return &natsjs.PubAck{}, nil
}

func (f *fakeJetStream) CreateOrUpdateConsumer(ctx context.Context, stream string, cfg natsjs.ConsumerConfig) (adapter.Consumer, error) {
	return nil, nil
}

type fakeNatsConn struct {
	closed bool
}

func (f *fakeNatsConn) Close()               { f.closed = true }
func (f *fakeNatsConn) LastError() error     { return nil }
func (f *fakeNatsConn) ConnectedUrl() string { return "nats://localhost:4222" }

// fakeNatsJetStream hands out the fake connection and stream
type fakeNatsJetStream struct {
	nc *fakeNatsConn
	js *fakeJetStream
}

func (f *fakeNatsJetStream) Connect(url string, options ...nats.Option) (adapter.NatsConn, adapter.JetStream, error) {
	return f.nc, f.js, nil
}

func TestBuildSubject(t *testing.T) {
	testCases := []struct {
		name     string
		network  domain.Network
		event    domain.EventType
		expected string
	}{
		{
			name:     "gnosis proof submitted",
			network:  domain.NetworkGnosisMainnet,
			event:    domain.EventTypeProofSubmitted,
			expected: "events.eip155_100.proof_submitted",
		},
		{
			name:     "mainnet chain deployed",
			network:  domain.NetworkEthereumMainnet,
			event:    domain.EventTypeChainDeployed,
			expected: "events.eip155_1.chain_deployed",
		},
		{
			name:     "sepolia token transfer",
			network:  domain.NetworkEthereumSepolia,
			event:    domain.EventTypeTokenTransferSingle,
			expected: "events.eip155_11155111.token_transfer_single",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			subject := jetstream.BuildSubject(&domain.ChainEvent{
				Network:   tc.network,
				EventType: tc.event,
			})
			assert.Equal(t, tc.expected, subject)
		})
	}
}

func TestPublisher_PublishEvent(t *testing.T) {
	js := &fakeJetStream{}
	natsJS := &fakeNatsJetStream{nc: &fakeNatsConn{}, js: js}

	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:        "nats://localhost:4222",
		StreamName: "QUEST_CHAIN_EVENTS",
	}, natsJS, adapter.NewJSON())
	require.NoError(t, err)

	details := "QmDetails"
	sender := "0x2222222222222222222222222222222222222222"
	event := &domain.ChainEvent{
		Network:         domain.NetworkGnosisMainnet,
		EventType:       domain.EventTypeChainCreated,
		ContractAddress: "0x1111111111111111111111111111111111111111",
		BlockNumber:     100,
		LogIndex:        1,
		Sender:          &sender,
		Details:         &details,
	}

	require.NoError(t, publisher.PublishEvent(context.Background(), event))

	require.Len(t, js.published, 1)
	assert.Equal(t, "events.eip155_100.chain_created", js.published[0].subject)

	var decoded domain.ChainEvent
	require.NoError(t, adapter.NewJSON().Unmarshal(js.published[0].data, &decoded))
	assert.Equal(t, event.ID(), decoded.ID())
	assert.Equal(t, domain.EventTypeChainCreated, decoded.EventType)
	require.NotNil(t, decoded.Details)
	assert.Equal(t, details, *decoded.Details)
}

func TestPublisher_Close(t *testing.T) {
	nc := &fakeNatsConn{}
	natsJS := &fakeNatsJetStream{nc: nc, js: &fakeJetStream{}}

	publisher, err := jetstream.NewPublisher(jetstream.Config{URL: "nats://localhost:4222"}, natsJS, adapter.NewJSON())
	require.NoError(t, err)

	publisher.Close()
	assert.True(t, nc.closed)
}
