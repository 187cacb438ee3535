// Package pipeline runs one synchronous crash data load: fetch the raw batch,
// build and persist the category lookups, normalize and persist incidents,
// then hand the result to optional side outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/crash-data-etl/internal/domain"
	"github.com/couchcryptid/crash-data-etl/internal/observability"
)

// Extractor fetches the raw batch from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawIncident, error)
}

// Store persists lookups and incidents with insert-if-absent semantics.
type Store interface {
	InsertCategoryValue(ctx context.Context, c domain.Category, row domain.CategoryRow) (bool, error)
	InsertIncident(ctx context.Context, n domain.NormalizedIncident) (bool, error)
}

// Archiver keeps a copy of each fetched batch.
type Archiver interface {
	Archive(ctx context.Context, runID string, records []domain.RawIncident) error
}

// Publisher forwards normalized incidents downstream.
type Publisher interface {
	Publish(ctx context.Context, runID string, incidents []domain.NormalizedIncident) error
}

// Option configures optional Loader collaborators.
type Option func(*Loader)

// WithArchiver enables raw snapshot archiving.
func WithArchiver(a Archiver) Option { return func(l *Loader) { l.archiver = a } }

// WithPublisher enables publishing normalized incidents.
func WithPublisher(p Publisher) Option { return func(l *Loader) { l.publisher = p } }

// WithGeocoder enables coordinate lookup for incidents that only carry an address.
func WithGeocoder(g domain.Geocoder) Option { return func(l *Loader) { l.geocoder = g } }

// Loader orchestrates a load. Each call owns its own lookups, so concurrent
// calls share no in-memory state.
type Loader struct {
	extractor Extractor
	store     Store
	archiver  Archiver
	publisher Publisher
	geocoder  domain.Geocoder
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Loader. The extractor may be nil when only LoadRecords is used.
func New(e Extractor, s Store, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Loader {
	l := &Loader{
		extractor: e,
		store:     s,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the source batch and loads it. A fetch failure aborts before
// anything is persisted and is returned wrapped, so callers can inspect the
// extractor's error type.
func (l *Loader) Load(ctx context.Context) (domain.LoadResult, error) {
	if l.extractor == nil {
		return domain.LoadResult{}, errors.New("load: no extractor configured")
	}

	runID := uuid.NewString()
	logger := l.logger.With("run_id", runID)
	start := time.Now()

	l.metrics.LoadInProgress.Inc()
	defer l.metrics.LoadInProgress.Dec()

	records, err := l.extractor.Extract(ctx)
	if err != nil {
		l.metrics.LoadRuns.WithLabelValues("fetch_error").Inc()
		logger.Error("extract failed", "error", err)
		return domain.LoadResult{}, fmt.Errorf("extract: %w", err)
	}
	l.metrics.RecordsFetched.Add(float64(len(records)))

	if l.archiver != nil {
		if err := l.archiver.Archive(ctx, runID, records); err != nil {
			l.metrics.ArchiveErrors.Inc()
			logger.Warn("archive raw batch failed", "records", len(records), "error", err)
		}
	}

	return l.run(ctx, runID, start, records)
}

// LoadRecords loads an already decoded batch, skipping the fetch and archive steps.
func (l *Loader) LoadRecords(ctx context.Context, records []domain.RawIncident) (domain.LoadResult, error) {
	l.metrics.LoadInProgress.Inc()
	defer l.metrics.LoadInProgress.Dec()

	l.metrics.RecordsFetched.Add(float64(len(records)))
	return l.run(ctx, uuid.NewString(), time.Now(), records)
}

func (l *Loader) run(ctx context.Context, runID string, start time.Time, records []domain.RawIncident) (domain.LoadResult, error) {
	logger := l.logger.With("run_id", runID)
	result := domain.LoadResult{
		RunID:   runID,
		Fetched: len(records),
		Counts:  make(map[string]int, len(domain.Categories())+1),
	}

	lookups, err := l.loadCategories(ctx, logger, records, result.Counts)
	if err != nil {
		l.metrics.LoadRuns.WithLabelValues("error").Inc()
		return domain.LoadResult{}, err
	}

	incidents := domain.NormalizeIncidents(records, lookups)
	if l.geocoder != nil {
		for i := range incidents {
			incidents[i] = domain.EnrichWithGeocoding(ctx, incidents[i], l.geocoder, logger)
		}
	}

	inserted := 0
	for _, n := range incidents {
		ok, err := l.store.InsertIncident(ctx, n)
		if err != nil {
			l.metrics.LoadRuns.WithLabelValues("error").Inc()
			logger.Error("persist incident failed", "incident_id", n.ID, "crash_num", n.Key(), "error", err)
			return domain.LoadResult{}, fmt.Errorf("persist incidents: %w", err)
		}
		if ok {
			inserted++
		}
	}
	result.Counts[domain.CountsKeyIncidents] = len(incidents)
	l.metrics.IncidentsProcessed.Add(float64(len(incidents)))

	if l.publisher != nil && len(incidents) > 0 {
		if err := l.publisher.Publish(ctx, runID, incidents); err != nil {
			l.metrics.PublishErrors.Inc()
			logger.Warn("publish incidents failed", "incidents", len(incidents), "error", err)
		}
	}

	result.Duration = time.Since(start)
	l.metrics.LoadDuration.Observe(result.Duration.Seconds())
	l.metrics.LoadRuns.WithLabelValues("success").Inc()

	logger.Info("load complete",
		"fetched", result.Fetched,
		"incidents", len(incidents),
		"incidents_inserted", inserted,
		"duration", result.Duration,
	)
	return result, nil
}

// loadCategories builds every lookup in fixed order and persists its rows.
// The first failure aborts the load.
func (l *Loader) loadCategories(ctx context.Context, logger *slog.Logger, records []domain.RawIncident, counts map[string]int) (domain.Lookups, error) {
	lookups := make(domain.Lookups, len(domain.Categories()))

	for _, c := range domain.Categories() {
		lookup, err := domain.BuildLookup(records, c)
		if err != nil {
			logger.Error("category extraction failed",
				"category", c.Key,
				"field", c.SourceField,
				"error", err,
			)
			return nil, fmt.Errorf("categorize %s: %w", c.Key, err)
		}

		for _, row := range lookup.Rows() {
			if _, err := l.store.InsertCategoryValue(ctx, c, row); err != nil {
				logger.Error("persist category value failed",
					"category", c.Key,
					"table", c.Table,
					"id", row.ID,
					"value", row.Value,
					"error", err,
				)
				return nil, fmt.Errorf("persist %s: %w", c.Key, err)
			}
		}

		lookups[c.Key] = lookup
		counts[c.Key] = lookup.Len()
		l.metrics.CategoryValues.WithLabelValues(c.Key).Add(float64(lookup.Len()))
	}
	return lookups, nil
}
