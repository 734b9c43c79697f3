package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-chat/internal/api/http"
	"github.com/spec-kit/ticket-chat/internal/api/http/handlers"
	"github.com/spec-kit/ticket-chat/internal/auth"
	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/events"
	"github.com/spec-kit/ticket-chat/internal/notify"
	"github.com/spec-kit/ticket-chat/internal/observability"
	"github.com/spec-kit/ticket-chat/internal/persistence"
	"github.com/spec-kit/ticket-chat/internal/repository"
	"github.com/spec-kit/ticket-chat/internal/service"
	"github.com/spec-kit/ticket-chat/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dependencies := map[string]handlers.Pinger{"postgres": pg}

	var publisher notify.Publisher
	switch cfg.Notification.Backend {
	case config.BackendAMQP:
		conn, err := notify.DialWithRetry(ctx, notify.DialOptions{
			URL:           cfg.AMQP.URL,
			RetryAttempts: cfg.AMQP.RetryAttempts,
			Delay:         cfg.AMQP.RetryDelay(),
			Logger:        logger,
		})
		if err != nil {
			logger.Fatal("failed to connect rabbitmq", zap.Error(err))
		}
		defer conn.Close()
		amqpPublisher, err := notify.NewAMQPPublisher(conn, cfg.AMQP.Exchange, cfg.Notification.Producer, logger)
		if err != nil {
			logger.Fatal("failed to open amqp publisher", zap.Error(err))
		}
		publisher = amqpPublisher
	default:
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		dependencies["redis"] = redis
		publisher = notify.NewRedisPublisher(redis.Client, cfg.Notification.Producer, logger)
	}
	defer publisher.Close() //nolint:errcheck

	pool := pg.PoolHandle()
	agentRepo := repository.NewAgentRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(
		service.NewNotificationService(dispatcher, publisher, metrics, logger, cfg.Notification),
		logger,
	)

	authService := service.NewAuthService(cfg.Auth, agentRepo)
	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		CompanyRepo: companyRepo,
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), agentRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Directory:      handlers.NewDirectoryHandler(directoryService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("notify_backend", cfg.Notification.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(cfg.App.RequestTimeout()); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
