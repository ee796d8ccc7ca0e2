package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/energex-outages-etl/internal/adapter/energex"
	kafkaadapter "github.com/couchcryptid/energex-outages-etl/internal/adapter/kafka"
	"github.com/couchcryptid/energex-outages-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/energex-outages-etl/internal/config"
	"github.com/couchcryptid/energex-outages-etl/internal/observability"
	"github.com/couchcryptid/energex-outages-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	db, err := sqlite.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		return 1
	}

	stores := pipeline.Stores{db}
	closers := []io.Closer{db}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		stores = append(stores, writer)
		closers = append(closers, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic_prefix", cfg.KafkaTopicPrefix)
	}

	client := energex.NewClient(cfg, logger)
	p := pipeline.New(client, stores, logger, metrics, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	report, err := p.Run(ctx)
	if err != nil {
		logger.Error("run failed", "run_id", report.RunID, "error", err, "outages_saved", report.Outages)
		code = 1
	} else {
		attrs := []any{
			"run_id", report.RunID,
			"outages", report.Outages,
			"demand", report.Demand.Demand,
			"retrieved_at", report.RetrievedAt,
		}
		if report.Demand.Rating != nil {
			attrs = append(attrs, "rating", *report.Demand.Rating)
		}
		if report.Summary.TotalCust != nil {
			attrs = append(attrs, "total_cust", *report.Summary.TotalCust)
		}
		logger.Info("run complete", attrs...)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(shutdownCtx, cfg.PushgatewayURL, cfg.PushJobName); err != nil {
			logger.Error("metrics push error", "error", err)
		}
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}
	return code
}
