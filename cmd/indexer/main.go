package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/config"
	"github.com/quest-chains/qc-indexer/internal/ingest"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/metadata"
	"github.com/quest-chains/qc-indexer/internal/pipeline"
	"github.com/quest-chains/qc-indexer/internal/providers/ethereum"
	"github.com/quest-chains/qc-indexer/internal/providers/jetstream"
	"github.com/quest-chains/qc-indexer/internal/roles"
	"github.com/quest-chains/qc-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "indexer",
			"run_id":  uuid.NewString(),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting event indexer")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()
	httpClient := adapter.NewHTTPClient(cfg.URI.HTTPTimeout)

	// Initialize ethereum client for contract reads
	rpcURL := cfg.Ethereum.RPCURL
	if rpcURL == "" {
		rpcURL = cfg.Ethereum.WebSocketURL
	}
	ethDialer := adapter.NewEthClientDialer()
	adapterEthClient, err := ethDialer.Dial(ctx, rpcURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum node", zap.Error(err), zap.String("rpc_url", rpcURL))
	}
	defer adapterEthClient.Close()
	questChainsClient := ethereum.NewClient(cfg.Ethereum.Network, adapterEthClient, clockAdapter)

	// Initialize resolvers and pipeline
	metadataResolver := metadata.NewResolver(httpClient, jsonAdapter, cfg.URI.IPFSGateways)
	rolesResolver := roles.NewResolver(questChainsClient)
	eventPipeline := pipeline.NewPipeline(dataStore, metadataResolver, rolesResolver, questChainsClient, clockAdapter)

	// Initialize NATS consumer
	consumer, err := ingest.NewConsumer(
		ingest.Config{
			ConsumerName:   cfg.NATS.ConsumerName,
			AckWaitTimeout: cfg.NATS.AckWait,
			MaxDeliver:     cfg.NATS.MaxDeliver,
		},
		jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		},
		natsJS,
		eventPipeline,
		dataStore,
		jsonAdapter,
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create NATS consumer", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer consumer.Close()
	logger.InfoCtx(ctx, "Connected to NATS JetStream")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	// Start the consumer
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "consumer"))
		cancel()
	}

	// Give some time for graceful shutdown
	time.Sleep(time.Second)

	logger.Info("Event indexer stopped")
}
