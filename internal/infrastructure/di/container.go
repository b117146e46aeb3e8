package di

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chainvest-service/chainvest_service/internal/adapters/chain"
	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/accrual"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/ledger"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/notification"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/portfolio"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/verifier"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/cache"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/config"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/repositories"
	"github.com/chainvest-service/chainvest_service/internal/workers/accrual_sweep"
	"github.com/chainvest-service/chainvest_service/internal/workers/intent_events"
	"github.com/chainvest-service/chainvest_service/internal/workers/intent_reaper"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// Version is stamped at build time via -ldflags
var Version = "dev"

// Container wires all application dependencies
type Container struct {
	Config  *config.Config
	DB      *sqlx.DB
	Logger  *logger.Logger
	Redis   cache.RedisClient
	Version string

	// Repositories
	IntentRepo   *repositories.IntentRepository
	AccountRepo  *repositories.AccountRepository
	PositionRepo *repositories.PositionRepository
	SnapshotRepo *repositories.SnapshotRepository

	// Chain oracles
	Oracles   *chain.Registry
	btcOracle *chain.BTCOracle
	ethOracle *chain.ERC20Oracle

	// Domain services
	Ledger    *ledger.Service
	Scheduler *verifier.Scheduler
	Engine    *accrual.Engine
	Portfolio *portfolio.Service
	Notifier  *notification.Service

	// Background workers
	Reaper       *intent_reaper.Worker
	Sweeper      *accrual_sweep.Worker
	EventsWorker *intent_events.Worker
}

// NewContainer builds the full dependency graph
func NewContainer(ctx context.Context, cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		return nil, err
	}

	intentRepo := repositories.NewIntentRepository(db)
	accountRepo := repositories.NewAccountRepository(db)
	positionRepo := repositories.NewPositionRepository(db)
	snapshotRepo := repositories.NewSnapshotRepository(db)

	catalog := accrual.NewCatalog(cfg.Plans)
	converter, err := accrual.NewConverter(cfg.Rates)
	if err != nil {
		return nil, err
	}

	engine := accrual.NewEngine(
		positionRepo, accountRepo, intentRepo, db,
		catalog, converter, cfg.Workers.SweepConcurrency, log)

	// The engine credits deposits inside the ledger's confirm transaction
	ledgerService := ledger.NewService(intentRepo, engine, db, log)

	oracles := chain.NewRegistry()
	btcOracle, err := chain.NewBTCOracle(chain.BTCConfig{
		RPCHost:          cfg.Blockchain.Bitcoin.RPCHost,
		RPCUser:          cfg.Blockchain.Bitcoin.RPCUser,
		RPCPassword:      cfg.Blockchain.Bitcoin.RPCPassword,
		MinConfirmations: cfg.Blockchain.Bitcoin.MinConfirmations,
		Testnet:          cfg.Blockchain.Bitcoin.Testnet,
	}, log)
	if err != nil {
		return nil, err
	}
	oracles.Register(entities.CurrencyBTC, btcOracle)

	ethOracle, err := chain.NewERC20Oracle(ctx, chain.ERC20Config{
		RPCURL:           cfg.Blockchain.Ethereum.RPCURL,
		TokenAddress:     cfg.Blockchain.Ethereum.USDTAddress,
		TokenDecimals:    cfg.Blockchain.Ethereum.USDTDecimals,
		LookbackBlocks:   cfg.Blockchain.Ethereum.LookbackBlocks,
		MinConfirmations: cfg.Blockchain.Ethereum.MinConfirmations,
	}, log)
	if err != nil {
		btcOracle.Shutdown()
		return nil, err
	}
	oracles.Register(entities.CurrencyUSDT, ethOracle)

	scheduler := verifier.NewScheduler(
		ledgerService, oracles,
		time.Duration(cfg.Verification.PollIntervalSeconds)*time.Second,
		time.Duration(cfg.Verification.DeadlineMinutes)*time.Minute,
		log)

	portfolioService := portfolio.NewService(
		accountRepo, positionRepo, snapshotRepo, converter, redisClient, log)
	engine.SetSnapshotter(portfolioService)

	notifier := notification.NewService(cfg.Email, log)

	reaper := intent_reaper.NewWorker(ledgerService, &intent_reaper.Config{
		Deadline:      time.Duration(cfg.Verification.DeadlineMinutes) * time.Minute,
		CheckInterval: time.Duration(cfg.Verification.ReapIntervalMinutes) * time.Minute,
	}, log)

	sweeper := accrual_sweep.NewWorker(engine, &accrual_sweep.Config{
		CronSpec:   cfg.Workers.SweepCronSpec,
		JobTimeout: time.Duration(cfg.Workers.JobTimeout) * time.Second,
	}, log)

	eventsWorker := intent_events.NewWorker(
		scheduler.Events(), ledgerService, portfolioService, notifier, nil, log)
	engine.SetMaturityListener(eventsWorker)

	return &Container{
		Config:       cfg,
		DB:           db,
		Logger:       log,
		Redis:        redisClient,
		Version:      Version,
		IntentRepo:   intentRepo,
		AccountRepo:  accountRepo,
		PositionRepo: positionRepo,
		SnapshotRepo: snapshotRepo,
		Oracles:      oracles,
		btcOracle:    btcOracle,
		ethOracle:    ethOracle,
		Ledger:       ledgerService,
		Scheduler:    scheduler,
		Engine:       engine,
		Portfolio:    portfolioService,
		Notifier:     notifier,
		Reaper:       reaper,
		Sweeper:      sweeper,
		EventsWorker: eventsWorker,
	}, nil
}

// StartWorkers launches the background workers. The scheduler itself is
// event driven and only needs pending intents re-tracked after a restart.
func (c *Container) StartWorkers(ctx context.Context) error {
	if err := c.Scheduler.ResumePending(ctx); err != nil {
		c.Logger.Error("Failed to resume pending intents", "error", err)
	}

	go c.EventsWorker.Start(ctx)
	go c.Reaper.Start(ctx)
	return c.Sweeper.Start()
}

// Shutdown stops workers and closes external connections. Order matters:
// the scheduler stops first so no new events are produced, then the
// consumers, then the clients they depend on. The caller owns the
// database pool.
func (c *Container) Shutdown(timeout time.Duration) error {
	c.Scheduler.Stop()
	c.EventsWorker.Stop()
	c.Reaper.Stop()
	c.Sweeper.Stop()

	c.btcOracle.Shutdown()
	c.ethOracle.Close()

	if err := c.Redis.Close(); err != nil {
		c.Logger.Error("Failed to close redis client", "error", err)
		return err
	}
	return nil
}
