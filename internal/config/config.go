package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Telemetry store backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigin      string

	// Location is the zone that defines local calendar days.
	Location *time.Location

	// Telemetry store.
	StoreBackend    string
	DatabaseURL     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	FetchLimit      int
	FetchTimeout    time.Duration

	// Narrative generation.
	GeminiAPIKey       string
	GeminiModel        string
	NarrativeEnabled   bool
	NarrativeTimeout   time.Duration
	NarrativeCacheSize int
	RedisAddr          string
	NarrativeCacheTTL  time.Duration

	// Report events. Publishing is off when KafkaBrokers is empty.
	KafkaBrokers     []string
	KafkaReportTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honoured but never
// overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	loc, err := parseLocation(sharedcfg.EnvOrDefault("TIMEZONE", "Local"))
	if err != nil {
		return nil, err
	}

	fetchLimit, err := parsePositiveInt("FETCH_LIMIT", 2000)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	narrativeTimeout, err := parsePositiveDuration("NARRATIVE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	narrativeCacheTTL, err := parsePositiveDuration("NARRATIVE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	narrativeCacheSize, err := parsePositiveInt("NARRATIVE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	narrativeEnabled := geminiKey != ""
	if v := os.Getenv("NARRATIVE_ENABLED"); v != "" {
		narrativeEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigin:      sharedcfg.EnvOrDefault("CORS_ORIGIN", "http://localhost:5173"),
		Location:        loc,

		StoreBackend:    sharedcfg.EnvOrDefault("STORE_BACKEND", BackendPostgres),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   sharedcfg.EnvOrDefault("MONGO_DATABASE", "weather"),
		MongoCollection: sharedcfg.EnvOrDefault("MONGO_COLLECTION", "datos_horarios"),
		FetchLimit:      fetchLimit,
		FetchTimeout:    fetchTimeout,

		GeminiAPIKey:       geminiKey,
		GeminiModel:        sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		NarrativeEnabled:   narrativeEnabled,
		NarrativeTimeout:   narrativeTimeout,
		NarrativeCacheSize: narrativeCacheSize,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		NarrativeCacheTTL:  narrativeCacheTTL,

		KafkaBrokers:     brokers,
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "agro-reports"),
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, errors.New("MONGO_URI is required when STORE_BACKEND is mongo")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want postgres or mongo", cfg.StoreBackend)
	}
	if cfg.NarrativeEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("NARRATIVE_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishEnabled reports whether report events should be written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, s)
	}
	return d, nil
}
