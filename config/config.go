package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderSettings configures the model provider the client talks to.
type ProviderSettings struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Effort            string        `mapstructure:"effort"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// CacheSettings selects and configures the completion cache backend.
type CacheSettings struct {
	Backend  string        `mapstructure:"backend"` // "memory", "redis", or "none"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"` // zero means entries never expire
}

// StorageSettings configures trial persistence.
type StorageSettings struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// SchedulerSettings bounds batch execution.
type SchedulerSettings struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
	MaxIterations int `mapstructure:"max_iterations"`
}

// TelemetrySettings selects trace export.
type TelemetrySettings struct {
	Exporter     string `mapstructure:"exporter"` // "otlp", "stdout", or "none"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Settings is the full runtime configuration. Every field can come from
// a YAML file or from the environment with the LAB_ prefix (for example
// LAB_PROVIDER_API_KEY overrides provider.api_key).
type Settings struct {
	Provider  ProviderSettings  `mapstructure:"provider"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Storage   StorageSettings   `mapstructure:"storage"`
	Scheduler SchedulerSettings `mapstructure:"scheduler"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

// Load reads settings from the given config file, falling back to
// ./lab.yaml, with environment overrides applied on top. An absent
// config file is not an error; defaults and environment carry it.
func Load(configPath string) (*Settings, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("lab")
		v.SetConfigType("yaml")
	}

	v.SetDefault("provider.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("provider.model", "openai/gpt-oss-20b")
	v.SetDefault("provider.effort", "medium")
	v.SetDefault("provider.timeout", "60s")
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.requests_per_second", 0.0)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", "0s")

	v.SetDefault("storage.sqlite_path", "experiments.db")

	v.SetDefault("scheduler.max_concurrent", 8)
	v.SetDefault("scheduler.max_iterations", 14)

	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")

	v.SetEnvPrefix("LAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate rejects settings the engine cannot run with.
func (s *Settings) Validate() error {
	switch s.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q (supported: memory, redis, none)", s.Cache.Backend)
	}
	switch s.Telemetry.Exporter {
	case "otlp", "stdout", "none":
	default:
		return fmt.Errorf("unknown telemetry exporter %q (supported: otlp, stdout, none)", s.Telemetry.Exporter)
	}
	if s.Scheduler.MaxConcurrent < 1 {
		return fmt.Errorf("scheduler.max_concurrent must be at least 1, got %d", s.Scheduler.MaxConcurrent)
	}
	if s.Scheduler.MaxIterations < 1 {
		return fmt.Errorf("scheduler.max_iterations must be at least 1, got %d", s.Scheduler.MaxIterations)
	}
	return nil
}
