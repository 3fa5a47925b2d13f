// Command analyze runs the PM2.5 extreme-hour analysis once over a CSV export
// and writes tables, a text report, and charts. With HTTP_ADDR set it keeps
// serving the result until interrupted.
//
// Usage:
//
//	go run ./cmd/analyze -input data/pm25_hourly.csv -out output
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/couchcryptid/airquality-etl/internal/adapter/chart"
	"github.com/couchcryptid/airquality-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/airquality-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/airquality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/airquality-etl/internal/adapter/report"
	"github.com/couchcryptid/airquality-etl/internal/config"
	"github.com/couchcryptid/airquality-etl/internal/domain"
	"github.com/couchcryptid/airquality-etl/internal/observability"
	"github.com/couchcryptid/airquality-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	input := flag.String("input", cfg.InputPath, "source CSV file")
	out := flag.String("out", cfg.OutputDir, "directory for tables and report")
	flag.Parse()
	if *out != cfg.OutputDir && os.Getenv("FIGURES_DIR") == "" {
		cfg.FiguresDir = filepath.Join(*out, "figures")
	}
	cfg.InputPath, cfg.OutputDir = *input, *out

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	loaders := []pipeline.Loader{
		csvfile.NewExporter(cfg.OutputDir, logger),
		report.NewWriter(cfg.OutputDir, os.Stdout, logger),
	}
	if cfg.ChartsEnabled {
		loaders = append(loaders, chart.NewRenderer(cfg.FiguresDir, logger))
	} else {
		logger.Info("chart rendering disabled")
	}

	// Optional Kafka sink (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaExtremeTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(csvfile.NewReader(cfg.InputPath, logger), cfg.ColumnMapping(), cfg.Analysis(), logger, metrics, loaders...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	if _, err := p.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			logger.Error("insufficient data: nothing to analyze", "input", cfg.InputPath)
		} else {
			logger.Error("run failed", "error", err)
		}
		code = 1
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	if cfg.HTTPAddr == "" {
		return code
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}
