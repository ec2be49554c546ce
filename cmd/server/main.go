package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/api"
	"github.com/taskhub/task-management/internal/auth"
	"github.com/taskhub/task-management/internal/broker"
	"github.com/taskhub/task-management/internal/config"
	"github.com/taskhub/task-management/internal/db"
	"github.com/taskhub/task-management/internal/hub"
	"github.com/taskhub/task-management/internal/metrics"
	"github.com/taskhub/task-management/internal/repository"
	"github.com/taskhub/task-management/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	userRepo := repository.NewPgUserRepository(pool)
	taskRepo := repository.NewPgTaskRepository(pool)
	notificationRepo := repository.NewPgNotificationRepository(pool)

	liveHub := hub.New(logger, m.HubHooks())

	authSvc := service.NewAuthService(userRepo, tokens, logger)
	notificationSvc := service.NewNotificationService(notificationRepo, liveHub, logger)

	// ---- broker ----
	producer, err := broker.NewProducer(cfg.AMQPURL, cfg.RetryDelay, logger, m.ProducerHooks())
	if err != nil {
		logger.Fatal("failed to connect producer", zap.Error(err))
	}
	defer producer.Close()

	taskSvc := service.NewTaskService(taskRepo, producer, logger)

	consumer, err := broker.NewConsumer(
		cfg.AMQPURL, cfg.RetryDelay, cfg.MaxDeliveryAttempts,
		notificationSvc, logger, m.ConsumerHooks(),
	)
	if err != nil {
		logger.Fatal("failed to connect consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Context for the consumer goroutine; cancelled on shutdown signal.
	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(consumerCtx); err != nil {
			logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	// ---- HTTP server ----
	socketHandler := hub.NewHandler(
		liveHub, tokens, notificationSvc,
		cfg.AllowedOrigins, cfg.SocketRPCRate, logger,
	)

	router := api.NewRouter(api.Deps{
		Auth:          authSvc,
		Tasks:         taskSvc,
		Notifications: notificationSvc,
		Tokens:        tokens,
		Socket:        socketHandler,
		Registry:      reg,
		ObserveHTTP:   m.HTTPHook(),
		Logger:        logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests. In-flight mutations finish, so
	//    their events still reach the broker before the producer closes.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the consumer. An unacknowledged in-flight delivery is
	//    redelivered on next startup; processing is idempotent.
	cancelConsumer()
	<-consumerDone

	logger.Info("server stopped cleanly")
}
