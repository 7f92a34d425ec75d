// Package config handles configuration loading for the engine and CLI.
// Values come from an optional YAML file plus CARTFLOW_* environment
// variables; environment wins.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the engine API
	HTTPPort int

	// How many workflow runs the scheduler advances concurrently
	SchedulerConcurrency int

	// Base interval between queue polls
	SchedulerPollInterval time.Duration

	// Cap on the adaptive poll backoff when the queue is empty
	SchedulerMaxBackoff time.Duration

	// OTLP collector endpoint for traces
	OTELEndpoint string
}

// Load reads configuration from the given YAML file (optional) and the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 7171)
	v.SetDefault("scheduler_concurrency", 4)
	v.SetDefault("scheduler_poll_interval", time.Second)
	v.SetDefault("scheduler_max_backoff", 30*time.Second)
	v.SetDefault("otel_endpoint", "localhost:4317")

	v.SetEnvPrefix("CARTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DATABASE_URL is also honoured without the prefix, matching the
	// conventions of most Postgres tooling.
	v.BindEnv("database_url", "CARTFLOW_DATABASE_URL", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		DatabaseURL:           v.GetString("database_url"),
		HTTPPort:              v.GetInt("http_port"),
		SchedulerConcurrency:  v.GetInt("scheduler_concurrency"),
		SchedulerPollInterval: v.GetDuration("scheduler_poll_interval"),
		SchedulerMaxBackoff:   v.GetDuration("scheduler_max_backoff"),
		OTELEndpoint:          v.GetString("otel_endpoint"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (env: CARTFLOW_DATABASE_URL)")
	}

	if cfg.SchedulerConcurrency <= 0 {
		cfg.SchedulerConcurrency = 1
	}

	return cfg, nil
}
