package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rcview/rcview-cli/internal/demographics"
	"github.com/rcview/rcview-cli/pkg/geocode"
	"github.com/rcview/rcview-cli/pkg/portal"
)

// Config holds the full application configuration.
type Config struct {
	Portal       PortalConfig       `yaml:"portal" mapstructure:"portal"`
	Geocode      GeocodeConfig      `yaml:"geocode" mapstructure:"geocode"`
	Demographics DemographicsConfig `yaml:"demographics" mapstructure:"demographics"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// PortalConfig holds RC View portal connection settings.
type PortalConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	ClientID      string `yaml:"client_id" mapstructure:"client_id"`
	TokenFile     string `yaml:"token_file" mapstructure:"token_file"`
	GeocodeServer string `yaml:"geocode_server" mapstructure:"geocode_server"`
	RateLimit     int    `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeocodeConfig configures geocoding behavior.
type GeocodeConfig struct {
	CachePath           string `yaml:"cache_path" mapstructure:"cache_path"`
	CensusRateLimit     int    `yaml:"census_rate_limit" mapstructure:"census_rate_limit"`
	FallbackConcurrency int    `yaml:"fallback_concurrency" mapstructure:"fallback_concurrency"`
	UsePortalFallback   bool   `yaml:"use_portal_fallback" mapstructure:"use_portal_fallback"`
}

// DemographicsConfig configures the census block survey.
type DemographicsConfig struct {
	BlocksLayerURL   string `yaml:"blocks_layer_url" mapstructure:"blocks_layer_url"`
	Method           string `yaml:"method" mapstructure:"method"`
	SpatialReference int    `yaml:"spatial_reference" mapstructure:"spatial_reference"`
	Concurrency      int    `yaml:"concurrency" mapstructure:"concurrency"`
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
	v.SetEnvPrefix("RCVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("portal.base_url", portal.DefaultBaseURL)
	v.SetDefault("portal.token_file", ".rcview_tokens")
	v.SetDefault("portal.geocode_server", geocode.DefaultGeocodeServer)
	v.SetDefault("portal.rate_limit", 10)
	v.SetDefault("geocode.cache_path", ".rcview_geocode.db")
	v.SetDefault("geocode.census_rate_limit", 10)
	v.SetDefault("geocode.fallback_concurrency", 5)
	v.SetDefault("demographics.blocks_layer_url", demographics.DefaultBlocksLayerURL)
	v.SetDefault("demographics.method", string(demographics.MethodMajority))
	v.SetDefault("demographics.spatial_reference", demographics.DefaultAnalysisSR)
	v.SetDefault("demographics.concurrency", 4)
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
