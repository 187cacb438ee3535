package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Defaults for the upstream services.
const (
	DefaultSourceURL = "https://data.somervillema.gov/resource/mtik-28va.json"
	DefaultLLMURL    = "https://api.mistral.ai/v1/chat/completions"
	DefaultLLMModel  = "mistral-small-2506"
)

// Supported DB_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Raw crash data source.
	SourceURL      string
	SourceAppToken string
	SourceTimeout  time.Duration

	DBDriver    string
	DatabaseURL string

	// Chat completion endpoint used by the AI relay.
	LLMAPIURL  string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// S3-compatible raw snapshot archive.
	ArchiveEnabled   bool
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveSSL       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parseDuration("SOURCE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	llmTimeout, err := parseDuration("LLM_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SourceURL:      sharedcfg.EnvOrDefault("SOURCE_URL", DefaultSourceURL),
		SourceAppToken: os.Getenv("SOURCE_APP_TOKEN"),
		SourceTimeout:  sourceTimeout,

		DBDriver:    sharedcfg.EnvOrDefault("DB_DRIVER", DriverSQLite),
		DatabaseURL: sharedcfg.EnvOrDefault("DATABASE_URL", "file:crash.db"),

		LLMAPIURL:  sharedcfg.EnvOrDefault("LLM_API_URL", DefaultLLMURL),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   sharedcfg.EnvOrDefault("LLM_MODEL", DefaultLLMModel),
		LLMTimeout: llmTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "crash-incidents"),

		ArchiveEnabled:   os.Getenv("ARCHIVE_ENABLED") == "true",
		ArchiveEndpoint:  os.Getenv("ARCHIVE_ENDPOINT"),
		ArchiveAccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
		ArchiveSecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
		ArchiveBucket:    sharedcfg.EnvOrDefault("ARCHIVE_BUCKET", "crash-raw"),
		ArchiveSSL:       os.Getenv("ARCHIVE_SSL") == "true",
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SourceURL == "" {
		return errors.New("SOURCE_URL is required")
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.LLMAPIURL == "" {
		return errors.New("LLM_API_URL is required")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	if c.ArchiveEnabled {
		if c.ArchiveEndpoint == "" {
			return errors.New("ARCHIVE_ENDPOINT is required when ARCHIVE_ENABLED is true")
		}
		if c.ArchiveBucket == "" {
			return errors.New("ARCHIVE_BUCKET is required when ARCHIVE_ENABLED is true")
		}
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
