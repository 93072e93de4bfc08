// Package config loads application configuration from file and environment
// and owns global logger initialization.
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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Backfill  BackfillConfig  `yaml:"backfill" mapstructure:"backfill"`
	Nearby    NearbyConfig    `yaml:"nearby" mapstructure:"nearby"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GoogleConfig holds the optional primary-provider credential. An empty key
// silently downgrades resolution to Nominatim only.
type GoogleConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// NominatimConfig configures the fallback provider.
type NominatimConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// GeocodeConfig configures shared resolver behavior.
type GeocodeConfig struct {
	CacheEnabled bool `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTLDays int  `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// BackfillConfig configures the batch coordinator.
type BackfillConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	PauseMs   int `yaml:"pause_ms" mapstructure:"pause_ms"`
}

// NearbyConfig configures proximity queries and lazy resolution.
type NearbyConfig struct {
	RadiusKm       float64 `yaml:"radius_km" mapstructure:"radius_km"`
	CandidateLimit int     `yaml:"candidate_limit" mapstructure:"candidate_limit"`
	LazyCap        int     `yaml:"lazy_cap" mapstructure:"lazy_cap"`
	LazyPauseMs    int     `yaml:"lazy_pause_ms" mapstructure:"lazy_pause_ms"`
}

// ServerConfig configures the HTTP query surface.
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
	v.SetEnvPrefix("JOBGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.cache_enabled", true)
	v.SetDefault("geocode.cache_ttl_days", 0)
	v.SetDefault("backfill.batch_size", 50)
	v.SetDefault("backfill.pause_ms", 500)
	v.SetDefault("nearby.radius_km", 25)
	v.SetDefault("nearby.candidate_limit", 500)
	v.SetDefault("nearby.lazy_cap", 30)
	v.SetDefault("nearby.lazy_pause_ms", 700)
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
