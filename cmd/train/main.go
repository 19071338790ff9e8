package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"pricetier/internal/config"
	"pricetier/internal/logger"
	"pricetier/internal/repository"
	"pricetier/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "pricetier-train")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store service.ListingStore
	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			zl.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer repo.Close()

		if err := repo.Migrate(ctx); err != nil {
			zl.Fatal("Failed to migrate database", zap.Error(err))
		}
		store = repo
	}

	pipeline := service.NewPipeline(service.PipelinePaths{
		Source:          cfg.Paths.Source,
		ProcessedFolder: cfg.Paths.ProcessedFolder,
		ModelFolder:     cfg.Paths.ModelFolder,
		ResultsFolder:   cfg.Paths.ResultsFolder,
	}, store, zl)

	res, err := pipeline.Run(ctx)
	if err != nil {
		zl.Error("Training run failed", zap.Error(err))
		zl.Sync()
		os.Exit(1)
	}

	zl.Info("Evaluation",
		zap.Float64("accuracy", res.Report.Accuracy),
		zap.Float64("roc_auc", res.Report.ROCAUC),
		zap.String("model", res.ModelPath),
	)
}
