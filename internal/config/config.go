package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Precomputed asset and facility locations.
	DataDir     string
	FacilityDir string
	MapsDir     string
	TablesDir   string

	FacilityCacheSize int

	// Session gate.
	AppPassword         string
	SessionTTL          time.Duration
	SessionCookieSecure bool
	LoginRatePerMinute  int

	// Optional facility publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers       []string
	KafkaFacilityTopic string
}

// KafkaEnabled reports whether facility publishing is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sessionTTL, err := parseDuration("SESSION_TTL", "12h")
	if err != nil {
		return nil, err
	}

	loginRate, err := parsePositiveInt("LOGIN_RATE_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("FACILITY_CACHE_SIZE", 8)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:     dataDir,
		FacilityDir: sharedcfg.EnvOrDefault("FACILITY_DIR", filepath.Join(dataDir, "facility_location_files")),
		MapsDir:     sharedcfg.EnvOrDefault("MAPS_DIR", filepath.Join(dataDir, "maps")),
		TablesDir:   sharedcfg.EnvOrDefault("TABLES_DIR", filepath.Join(dataDir, "map_tables")),

		FacilityCacheSize: cacheSize,

		AppPassword:         os.Getenv("APP_PASSWORD"),
		SessionTTL:          sessionTTL,
		SessionCookieSecure: os.Getenv("SESSION_COOKIE_SECURE") == "true",
		LoginRatePerMinute:  loginRate,

		KafkaBrokers:       brokers,
		KafkaFacilityTopic: sharedcfg.EnvOrDefault("KAFKA_FACILITY_TOPIC", "facility-locations"),
	}

	if cfg.AppPassword == "" {
		return nil, errors.New("APP_PASSWORD is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaFacilityTopic == "" {
		return nil, errors.New("KAFKA_FACILITY_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
