package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Default source URLs published by Energex.
const (
	DefaultDemandURL  = "https://www.energex.com.au/static/Energex/Network%20Demand/networkdemand.txt"
	DefaultOutagesURL = "https://www.energex.com.au/power-outages/emergency-outages"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	DemandURL  string
	OutagesURL string

	DatabasePath string

	FetchTimeout  time.Duration
	FetchCacheDir string
	UserAgent     string

	// Optional Kafka sink; disabled when KafkaBrokers is empty.
	KafkaBrokers     []string
	KafkaTopicPrefix string

	// Optional Prometheus Pushgateway; disabled when empty.
	PushgatewayURL string
	PushJobName    string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether saved rows are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "30s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		DemandURL:        sharedcfg.EnvOrDefault("DEMAND_URL", DefaultDemandURL),
		OutagesURL:       sharedcfg.EnvOrDefault("OUTAGES_URL", DefaultOutagesURL),
		DatabasePath:     sharedcfg.EnvOrDefault("DATABASE_PATH", "data.sqlite"),
		FetchTimeout:     fetchTimeout,
		FetchCacheDir:    os.Getenv("FETCH_CACHE_DIR"),
		UserAgent:        sharedcfg.EnvOrDefault("USER_AGENT", "energex-outages-etl/1.0"),
		KafkaBrokers:     brokers,
		KafkaTopicPrefix: sharedcfg.EnvOrDefault("KAFKA_TOPIC_PREFIX", "energex."),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		PushJobName:      sharedcfg.EnvOrDefault("PUSH_JOB_NAME", "energex-outages-etl"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
	}

	if err := validateURL("DEMAND_URL", cfg.DemandURL); err != nil {
		return nil, err
	}
	if err := validateURL("OUTAGES_URL", cfg.OutagesURL); err != nil {
		return nil, err
	}
	if cfg.DatabasePath == "" {
		return nil, errors.New("DATABASE_PATH is required")
	}
	if cfg.PushgatewayURL != "" {
		if err := validateURL("PUSHGATEWAY_URL", cfg.PushgatewayURL); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %q", name, raw)
	}
	return nil
}
