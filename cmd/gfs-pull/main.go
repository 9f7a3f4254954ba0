// Package main is the entrypoint for the gfs-pull batch job.
//
// gfs-pull walks a date range of GFS model output on NOAA's public S3
// bucket, downloads each (date, cycle, lead hour) grid file, extracts a
// fixed set of meteorological fields, optionally crops them to the
// North-American window, and persists each field as a .npy artifact under a
// date-keyed directory.
//
// This file handles dependency wiring and delegates the pipeline logic to
// internal/pipeline. Optional sinks (SQS completions, CloudWatch metrics,
// Postgres run history) are wired only when configured.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhellums/gfs-pull/internal/artifact"
	"github.com/rhellums/gfs-pull/internal/config"
	"github.com/rhellums/gfs-pull/internal/db"
	"github.com/rhellums/gfs-pull/internal/grib"
	"github.com/rhellums/gfs-pull/internal/pipeline"
	"github.com/rhellums/gfs-pull/internal/queue"
	"github.com/rhellums/gfs-pull/internal/storage"
	"github.com/rhellums/gfs-pull/internal/telemetry"
	"github.com/rhellums/gfs-pull/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger's level comes from config, so startup failures use a
		// default handler.
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	start, end, err := cfg.DateRange()
	if err != nil {
		logger.Error("invalid date range", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			// MinIO in local dev requires path-style addressing.
			o.BaseEndpoint = &cfg.EndpointURL
			o.UsePathStyle = true
		}
	})

	store := storage.NewS3ObjectStore(s3Client, cfg.DownloadTimeout, logger)
	opener := grib.NewWgrib2(cfg.Wgrib2Path, logger)
	writer := artifact.NewWriter(cfg.DataDir, cfg.CompressArtifacts)
	extractor := pipeline.NewExtractor(writer, cfg.Bounds(), logger)

	unit := pipeline.NewUnit(pipeline.UnitConfig{
		Store:         store,
		Opener:        opener,
		Extractor:     extractor,
		Bucket:        cfg.Bucket,
		Resolution:    cfg.Resolution,
		WorkRoot:      cfg.DataDir,
		Cleanup:       cfg.Cleanup,
		DecodeTimeout: cfg.DecodeTimeout,
		Logger:        logger,
	})

	orch := pipeline.NewOrchestrator(unit, cfg.CycleList(), types.LeadHours(cfg.MaxLeadHour), logger)

	if cfg.CompletionsQueueURL != "" {
		sqsClient := sqs.NewFromConfig(awsCfg)
		orch.AddUnitSink(queue.NewCompletionPublisher(sqsClient, cfg.CompletionsQueueURL, logger))
		logger.Info("unit completion queue enabled", "queue_url", cfg.CompletionsQueueURL)
	}

	if cfg.MetricsEnabled {
		cwClient := cloudwatch.NewFromConfig(awsCfg)
		orch.AddUnitSink(telemetry.NewPipelineMetrics(cwClient, logger))
		logger.Info("cloudwatch metrics enabled", "namespace", types.MetricNamespace)
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		history := db.NewRunHistoryRepository(pool)
		orch.AddRunSink(history)
		orch.AddUnitSink(history)
		logger.Info("run history recording enabled")
	}

	summary, err := orch.Run(ctx, start, end)
	if err != nil {
		logger.Error("run interrupted",
			"run_id", summary.RunID,
			"units", summary.Units,
			"error", err,
		)
		os.Exit(1)
	}

	logger.Info("run complete",
		"run_id", summary.RunID,
		"units", summary.Units,
		"download_failures", summary.DownloadFailures,
		"variable_failures", summary.VariableFailures,
		"artifacts_written", summary.ArtifactsWritten,
	)
}

// logLevel maps the configured level name to a slog.Level. Config validation
// restricts the value to the four names handled here.
func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
