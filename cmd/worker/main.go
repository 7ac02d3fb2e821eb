package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/config"
	"github.com/dharsanguruparan/docdesk/internal/database"
	"github.com/dharsanguruparan/docdesk/internal/logging"
	"github.com/dharsanguruparan/docdesk/internal/mail"
	"github.com/dharsanguruparan/docdesk/internal/notify"
	"github.com/dharsanguruparan/docdesk/internal/queue"
	"github.com/dharsanguruparan/docdesk/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	mailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		return err
	}
	notifier := notify.NewNotifier(
		repository.NewDocumentRepository(pool),
		repository.NewUserRepository(pool),
		mailer,
		cfg.Mail.From,
		cfg.Mail.AdminEmail,
		logger,
	)

	server := asynq.NewServer(queue.RedisOpt(cfg.Redis), asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues:      map[string]int{cfg.Worker.Queue: 1},
		Logger:      logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn("job failed", zap.String("type", task.Type()), zap.ByteString("payload", task.Payload()), zap.Error(err))
		}),
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("worker started", zap.Int("concurrency", cfg.Worker.Concurrency), zap.String("queue", cfg.Worker.Queue))
	return server.Run(notifier.Handler())
}
