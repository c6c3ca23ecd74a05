package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/onpoint/ticket-bridge/internal/api/http"
	"github.com/onpoint/ticket-bridge/internal/api/http/handlers"
	"github.com/onpoint/ticket-bridge/internal/config"
	"github.com/onpoint/ticket-bridge/internal/events"
	"github.com/onpoint/ticket-bridge/internal/observability"
	"github.com/onpoint/ticket-bridge/internal/persistence"
	"github.com/onpoint/ticket-bridge/internal/repository"
	"github.com/onpoint/ticket-bridge/internal/service"
	"github.com/onpoint/ticket-bridge/internal/storage"
	"github.com/onpoint/ticket-bridge/internal/tracker"
	"github.com/onpoint/ticket-bridge/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	syncRepo := repository.NewSyncRepository(pool)
	historyRepo := repository.NewStatusHistoryRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	trackerClient := tracker.NewClient(cfg.Tracker, logger)
	storeClient := storage.NewClient(cfg.Storage, logger)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	locks := service.NewKeyedMutex()

	replicator := service.NewReplicator(attachmentRepo, storeClient, trackerClient, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		HistoryRepo:    historyRepo,
		AttachmentRepo: attachmentRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	transferService := service.NewTransferService(service.TransferDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		SyncRepo:    syncRepo,
		Tracker:     trackerClient,
		Replicator:  replicator,
		Locks:       locks,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	refreshService := service.NewRefreshService(service.RefreshDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		SyncRepo:    syncRepo,
		Tracker:     trackerClient,
		Locks:       locks,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		BulkDelay:   cfg.Sync.RefreshAllDelay(),
	})
	statsService := service.NewStatsService(syncRepo, redis, cfg.Sync.StatsCacheTTL(), logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets: handlers.NewTicketsHandler(ticketService),
		Sync:    handlers.NewSyncHandler(transferService, refreshService, statsService, cfg.Sync.RefreshAllLimit),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("ticket-bridge started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("env", cfg.App.Env),
	)

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
