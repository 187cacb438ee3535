// Command crashload runs a single load of the Somerville crash data into the
// configured store and prints the per-table counts as JSON.
//
// Usage:
//
//	go run ./cmd/crashload                       # fetch from SOURCE_URL
//	go run ./cmd/crashload -fixture crashes.json # load a saved API response
//
// Store, source, geocoding, Kafka, and archive settings come from the same
// environment variables as crashd.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crash-data-etl/internal/adapter/archive"
	kafkaadapter "github.com/couchcryptid/crash-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/crash-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/crash-data-etl/internal/adapter/socrata"
	"github.com/couchcryptid/crash-data-etl/internal/adapter/store"
	"github.com/couchcryptid/crash-data-etl/internal/config"
	"github.com/couchcryptid/crash-data-etl/internal/domain"
	"github.com/couchcryptid/crash-data-etl/internal/observability"
	"github.com/couchcryptid/crash-data-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	fixture := flag.String("fixture", "", "JSON file with raw crash records; skips the source API")
	dbURL := flag.String("db", "", "database DSN (overrides DATABASE_URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	var opts []pipeline.Option
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts = append(opts, pipeline.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
	}
	if cfg.KafkaEnabled {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer publisher.Close()
		opts = append(opts, pipeline.WithPublisher(publisher))
	}
	if cfg.ArchiveEnabled {
		archiver, err := archive.NewArchiver(ctx, cfg, logger)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithArchiver(archiver))
	}

	var result domain.LoadResult
	if *fixture != "" {
		data, err := os.ReadFile(*fixture)
		if err != nil {
			return fmt.Errorf("read fixture: %w", err)
		}
		records, err := domain.DecodeRawIncidents(data)
		if err != nil {
			return err
		}
		result, err = pipeline.New(nil, st, logger, metrics, opts...).LoadRecords(ctx, records)
		if err != nil {
			return err
		}
	} else {
		source := socrata.NewClient(cfg.SourceURL, cfg.SourceAppToken, cfg.SourceTimeout, logger)
		result, err = pipeline.New(source, st, logger, metrics, opts...).Load(ctx)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"run_id":  result.RunID,
		"fetched": result.Fetched,
		"counts":  result.Counts,
	})
}
