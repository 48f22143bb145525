// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	TCG     TCGConfig     `yaml:"tcg" mapstructure:"tcg"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	Collect CollectConfig `yaml:"collect" mapstructure:"collect"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// TCGConfig holds Pokemon TCG API settings.
type TCGConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// PricingConfig configures the adaptive price resolver.
type PricingConfig struct {
	CacheTTLHours      int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	FetchTimeoutSecs   int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	RaceTimeoutMillis  int     `yaml:"race_timeout_millis" mapstructure:"race_timeout_millis"`
	RefreshJitterSecs  int     `yaml:"refresh_jitter_secs" mapstructure:"refresh_jitter_secs"`
	USDToGBP           float64 `yaml:"usd_to_gbp" mapstructure:"usd_to_gbp"`
	HistoryRetainLimit int     `yaml:"history_retain_limit" mapstructure:"history_retain_limit"`
}

// CollectConfig configures bulk price collection.
type CollectConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CARDINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "cardintel.db")
	v.SetDefault("tcg.base_url", "https://api.pokemontcg.io")
	v.SetDefault("tcg.rate_limit", 2.0)
	v.SetDefault("pricing.cache_ttl_hours", 24)
	v.SetDefault("pricing.fetch_timeout_secs", 5)
	v.SetDefault("pricing.race_timeout_millis", 1000)
	v.SetDefault("pricing.refresh_jitter_secs", 5)
	v.SetDefault("pricing.usd_to_gbp", 0.79)
	v.SetDefault("pricing.history_retain_limit", 100)
	v.SetDefault("collect.max_concurrent", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is sufficient for the given
// run mode. Modes: "serve", "collect", "sync", "price".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Pricing.CacheTTLHours <= 0 {
		problems = append(problems, "pricing.cache_ttl_hours must be > 0")
	}
	if c.Pricing.FetchTimeoutSecs <= 0 {
		problems = append(problems, "pricing.fetch_timeout_secs must be > 0")
	}
	if c.Pricing.USDToGBP <= 0 {
		problems = append(problems, "pricing.usd_to_gbp must be > 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "collect":
		if c.Collect.MaxConcurrent < 1 || c.Collect.MaxConcurrent > 50 {
			problems = append(problems, "collect.max_concurrent must be between 1 and 50")
		}
	case "sync":
		if c.TCG.Key == "" {
			problems = append(problems, "tcg.key is required for set sync")
		}
	case "price":
		// Base checks only.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
