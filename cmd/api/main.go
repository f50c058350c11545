package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/chat-service/internal/api/http"
	"github.com/spec-kit/chat-service/internal/api/http/handlers"
	"github.com/spec-kit/chat-service/internal/auth"
	"github.com/spec-kit/chat-service/internal/config"
	"github.com/spec-kit/chat-service/internal/events"
	"github.com/spec-kit/chat-service/internal/observability"
	"github.com/spec-kit/chat-service/internal/persistence"
	"github.com/spec-kit/chat-service/internal/realtime"
	"github.com/spec-kit/chat-service/internal/repository"
	"github.com/spec-kit/chat-service/internal/service"
	"github.com/spec-kit/chat-service/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	feed := selectFeed(ctx, redis, logger)

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	sessionService := service.NewSessionService(cfg.Chat, service.SessionDependencies{
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		AccountRepo: accountRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	messageService := service.NewMessageService(cfg.Chat, service.MessageDependencies{
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	readStateService := service.NewReadStateService(service.ReadStateDependencies{
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	publisher := realtime.NewPublisher(feed, logger)
	worker.StartEventWorkers(dispatcher, publisher, notificationService)

	hub := realtime.NewHub(feed, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, accountRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics)
	sessionsHandler := handlers.NewSessionsHandler(sessionService)
	messagesHandler := handlers.NewMessagesHandler(messageService, readStateService)
	realtimeHandler := handlers.NewRealtimeHandler(hub, sessionRepo, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Sessions:       sessionsHandler,
		Messages:       messagesHandler,
		Realtime:       realtimeHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// selectFeed prefers the Redis change feed and falls back to in-process
// dispatch when Redis is unreachable at startup.
func selectFeed(ctx context.Context, redis *persistence.Redis, logger *zap.Logger) realtime.Feed {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := redis.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, realtime feed degraded to local dispatch", zap.Error(err))
		return realtime.NewMemoryFeed()
	}
	return realtime.NewRedisFeed(redis.Client)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
