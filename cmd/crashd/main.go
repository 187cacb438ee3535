package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crash-data-etl/internal/adapter/archive"
	httpadapter "github.com/couchcryptid/crash-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crash-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/crash-data-etl/internal/adapter/llm"
	"github.com/couchcryptid/crash-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/crash-data-etl/internal/adapter/socrata"
	"github.com/couchcryptid/crash-data-etl/internal/adapter/store"
	"github.com/couchcryptid/crash-data-etl/internal/chat"
	"github.com/couchcryptid/crash-data-etl/internal/config"
	"github.com/couchcryptid/crash-data-etl/internal/observability"
	"github.com/couchcryptid/crash-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	opts := []pipeline.Option{}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts = append(opts, pipeline.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(publisher))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	if cfg.ArchiveEnabled {
		archiver, err := archive.NewArchiver(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to init archive", "endpoint", cfg.ArchiveEndpoint, "error", err)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithArchiver(archiver))
		logger.Info("raw archive enabled", "endpoint", cfg.ArchiveEndpoint, "bucket", cfg.ArchiveBucket)
	}

	source := socrata.NewClient(cfg.SourceURL, cfg.SourceAppToken, cfg.SourceTimeout, logger)
	loader := pipeline.New(source, st, logger, metrics, opts...)

	completer := llm.NewClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger)
	relay := chat.NewRelay(completer, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Services{
		Incidents: st,
		Retriever: st,
		Loader:    loader,
		Chat:      relay,
		Ready:     st,
	}, logger)

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
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
