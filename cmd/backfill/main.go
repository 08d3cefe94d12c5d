package main

import (
	"context"
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
	"github.com/quest-chains/qc-indexer/internal/backfill"
	"github.com/quest-chains/qc-indexer/internal/config"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/metadata"
	"github.com/quest-chains/qc-indexer/internal/pipeline"
	"github.com/quest-chains/qc-indexer/internal/providers/ethereum"
	"github.com/quest-chains/qc-indexer/internal/roles"
	"github.com/quest-chains/qc-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	fromBlock  = flag.Uint64("from", 0, "First block to replay (0 resumes from the cursor)")
	toBlock    = flag.Uint64("to", 0, "Last block to replay (0 means latest)")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadBackfillConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Command line flags override config values
	if *fromBlock > 0 {
		cfg.Backfill.FromBlock = *fromBlock
	}
	if *toBlock > 0 {
		cfg.Backfill.ToBlock = *toBlock
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "backfill",
			"run_id":  uuid.NewString(),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting backfill")

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
	httpClient := adapter.NewHTTPClient(cfg.URI.HTTPTimeout)

	// Initialize ethereum client
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

	backfiller := backfill.NewBackfiller(questChainsClient, eventPipeline, dataStore, backfill.Config{
		Network:   cfg.Ethereum.Network,
		FromBlock: cfg.Backfill.FromBlock,
		ToBlock:   cfg.Backfill.ToBlock,
		Addresses: cfg.Backfill.Addresses,
		BatchSize: cfg.Backfill.BatchSize,
	})

	// Cancel the run on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := backfiller.Run(ctx); err != nil {
		logger.FatalCtx(ctx, "Backfill failed", zap.Error(err))
	}

	logger.Info("Backfill finished")
}
