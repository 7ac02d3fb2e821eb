package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/api"
	"github.com/dharsanguruparan/docdesk/internal/api/middleware"
	"github.com/dharsanguruparan/docdesk/internal/config"
	"github.com/dharsanguruparan/docdesk/internal/database"
	"github.com/dharsanguruparan/docdesk/internal/logging"
	"github.com/dharsanguruparan/docdesk/internal/queue"
	"github.com/dharsanguruparan/docdesk/internal/repository"
	"github.com/dharsanguruparan/docdesk/internal/review"
	"github.com/dharsanguruparan/docdesk/internal/s3storage"
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
		logger.Error("api stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := database.Migrate(cfg.Database.URL, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	files, err := s3storage.New(cfg.S3)
	if err != nil {
		return err
	}
	if err := files.EnsureBucket(ctx); err != nil {
		return err
	}

	asynqClient := asynq.NewClient(queue.RedisOpt(cfg.Redis))
	defer asynqClient.Close()
	jobs := queue.NewClient(asynqClient, cfg.Worker.Queue)

	redisClient := api.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	auth, err := middleware.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Leeway, logger)
	if err != nil {
		return err
	}

	docs := repository.NewDocumentRepository(pool)
	srv := api.New(cfg, api.Deps{
		Documents: docs,
		Files:     files,
		Queue:     jobs,
		Review:    review.NewService(docs, jobs, logger),
		Auth:      auth,
		Checkers: []api.ReadinessChecker{
			database.NewReadinessChecker(pool),
			api.NewRedisChecker(redisClient),
		},
	}, logger)
	return srv.Run(ctx)
}
