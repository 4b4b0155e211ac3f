package main

import (
	"context"
	"fmt"
	"time"

	"relay-core/internal/handler"
	"relay-core/internal/model"
	"relay-core/internal/server"
	"relay-core/internal/service"
	"relay-core/internal/service/mq"

	"relay-core/pkg/authz"
	"relay-core/pkg/chain"
	"relay-core/pkg/config"
	"relay-core/pkg/database"
	"relay-core/pkg/logger"
	"relay-core/pkg/pipeline"
	"relay-core/pkg/quorum"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "relay-core/docs"
)

// @title Relay Core API
// @version 1.0
// @description Sponsored transaction relay API

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
func main() {
	config.Init()

	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)

	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}

	if config.Global.App.Env == "development" {
		logger.Info("development env: running GORM AutoMigrate")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("auto migration failed", zap.Error(err))
		}
	} else {
		logger.Info("production env: schema managed by the migrate tool")
	}

	ctx := context.Background()

	// Chain clients, primary first.
	primaryChain, err := chain.NewClient(ctx, config.Global.Chains.Primary, config.Global.Relay)
	if err != nil {
		logger.Fatal("primary chain dial failed", zap.Error(err))
	}
	secondaryChain, err := chain.NewClient(ctx, config.Global.Chains.Secondary, config.Global.Relay)
	if err != nil {
		logger.Fatal("secondary chain dial failed", zap.Error(err))
	}

	// Signing quorum. Development falls back to an in-process key derived
	// from the configured mnemonic.
	signer, sponsor, err := buildSigner(rdb)
	if err != nil {
		logger.Fatal("signer init failed", zap.Error(err))
	}
	logger.Info("sponsor account loaded", zap.String("address", sponsor.Hex()))

	outboxSink := service.NewOutboxSink(db, config.Global.Kafka.ReconcileTopic)

	primaryPipeline := &pipeline.Pipeline{
		Verifier:        authz.NewVerifier(),
		Chain:           primaryChain,
		Signer:          signer,
		SignerPublicKey: config.Global.Quorum.PublicKey,
		Sponsor:         sponsor,
		MaxAttempts:     config.Global.Relay.MaxSubmitAttempts,
	}
	secondaryPipeline := &pipeline.Pipeline{
		Verifier:        authz.NewVerifier(),
		Chain:           secondaryChain,
		Signer:          signer,
		SignerPublicKey: config.Global.Quorum.PublicKey,
		Sponsor:         sponsor,
		MaxAttempts:     config.Global.Relay.MaxSubmitAttempts,
	}
	mirror := &pipeline.Mirror{
		Primary:   primaryPipeline,
		Secondary: secondaryPipeline,
		Sink:      outboxSink,
	}

	// Reconciliation transport.
	var producer mq.Producer
	var consumer mq.Consumer
	if config.Global.Redis.MQType == "kafka" {
		logger.Info("using Kafka for reconciliation events")
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers, config.Global.Kafka.ReconcileTopic)
		consumer = mq.NewKafkaConsumer(config.Global.Kafka.Brokers, config.Global.Kafka.ReconcileGroupID)
	} else {
		logger.Info("using Redis Streams for reconciliation events")
		producer = mq.NewRedisProducer(rdb)
		consumer = mq.NewRedisConsumer(rdb, config.Global.Kafka.ReconcileGroupID, "reconcile-0")
	}

	reconcile := service.NewReconcileService(db, producer)
	go reconcile.Start(ctx)

	worker := service.NewReconcileWorker(db, consumer, config.Global.Kafka.ReconcileTopic)
	go func() {
		if err := worker.Start(ctx); err != nil {
			logger.Error("reconcile worker failed", zap.Error(err))
		}
	}()

	relayService := service.NewRelayService(db, rdb, primaryPipeline, mirror,
		time.Duration(config.Global.Relay.SenderLockTTLSec)*time.Second,
		time.Duration(config.Global.Relay.NonceLedgerTTLSec)*time.Second,
	)

	r := server.NewHTTPRouter(handler.NewRelayHandler(relayService))

	app, err := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)
	if err != nil {
		logger.Fatal("application startup failed", zap.Error(err))
	}
	app.Run()

	logger.Info("closing connections...")
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	rdb.Close()
	logger.Info("shutdown complete")
}

// buildSigner selects the quorum client or the local development signer and
// wraps it with the shared signature cache.
func buildSigner(rdb *redis.Client) (quorum.Signer, common.Address, error) {
	cacheTTL := time.Duration(config.Global.Relay.NonceLedgerTTLSec) * time.Second

	if endpoint := config.Global.Quorum.Endpoint; endpoint != "" {
		timeout := time.Duration(config.Global.Quorum.TimeoutSec) * time.Second
		inner := quorum.NewHTTPSigner(endpoint, timeout)
		if !common.IsHexAddress(config.Global.Sponsor.Address) {
			return nil, common.Address{}, fmt.Errorf("sponsor.address must be set when using the quorum signer")
		}
		return quorum.NewCachedSigner(inner, rdb, cacheTTL),
			common.HexToAddress(config.Global.Sponsor.Address), nil
	}

	logger.Warn("quorum endpoint not configured, using local development signer")
	local, err := quorum.LocalSignerFromMnemonic(
		config.Global.Sponsor.Mnemonic,
		config.Global.Sponsor.DerivationPath,
	)
	if err != nil {
		return nil, common.Address{}, err
	}
	return quorum.NewCachedSigner(local, rdb, cacheTTL), local.Address(), nil
}
