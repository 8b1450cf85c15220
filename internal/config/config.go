package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	News      NewsConfig      `yaml:"news" mapstructure:"news"`
	Populate  PopulateConfig  `yaml:"populate" mapstructure:"populate"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GoogleConfig configures the Places provider and result paging.
type GoogleConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PageDelayMS int    `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	MaxPages    int    `yaml:"max_pages" mapstructure:"max_pages"`
	MaxResults  int    `yaml:"max_results" mapstructure:"max_results"`
}

// LLMConfig selects the classification provider and call limits.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// City match policies for cache lookups.
const (
	CityMatchExact     = "exact"
	CityMatchSubstring = "substring"
)

// CacheConfig configures the enriched search cache.
type CacheConfig struct {
	FreshnessDays    int    `yaml:"freshness_days" mapstructure:"freshness_days"`
	RadiusMeters     int    `yaml:"radius_meters" mapstructure:"radius_meters"`
	CityMatch        string `yaml:"city_match" mapstructure:"city_match"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	WriteQueue       int    `yaml:"write_queue" mapstructure:"write_queue"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// NewsConfig configures the RSS news feed.
type NewsConfig struct {
	FeedURL     string `yaml:"feed_url" mapstructure:"feed_url"`
	MaxItems    int    `yaml:"max_items" mapstructure:"max_items"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PopulateConfig configures the batch cache seeding driver.
type PopulateConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	CitiesFile        string  `yaml:"cities_file" mapstructure:"cities_file"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CityPauseSecs     int     `yaml:"city_pause_secs" mapstructure:"city_pause_secs"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Archive           bool    `yaml:"archive" mapstructure:"archive"`
}

// ArchiveConfig holds S3-compatible object storage settings.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GFSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("google.timeout_secs", 30)
	v.SetDefault("google.page_delay_ms", 2000)
	v.SetDefault("google.max_pages", 2)
	v.SetDefault("google.max_results", 20)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("cache.freshness_days", 7)
	v.SetDefault("cache.radius_meters", 500)
	v.SetDefault("cache.city_match", CityMatchExact)
	v.SetDefault("cache.write_timeout_secs", 10)
	v.SetDefault("cache.write_queue", 64)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 90)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("news.feed_url", "https://www.glutenfreeliving.com/feed/")
	v.SetDefault("news.max_items", 10)
	v.SetDefault("news.timeout_secs", 10)
	v.SetDefault("populate.base_url", "http://localhost:8080")
	v.SetDefault("populate.cities_file", "")
	v.SetDefault("populate.requests_per_second", 0.5)
	v.SetDefault("populate.city_pause_secs", 5)
	v.SetDefault("populate.concurrency", 3)
	v.SetDefault("populate.timeout_secs", 120)
	v.SetDefault("populate.archive", false)
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("archive.bucket", "gfscout-populate")
	v.SetDefault("archive.use_ssl", true)
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

// Validate checks the settings a command mode depends on. Every problem is
// reported in one error.
func (c *Config) Validate(mode string) error {
	var errs []string

	storeChecks := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for postgres")
			}
		case "sqlite":
		default:
			errs = append(errs, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "serve":
		storeChecks()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RequestTimeoutSecs <= 0 {
			errs = append(errs, "server.request_timeout_secs must be > 0")
		}
		if c.Google.Key == "" {
			errs = append(errs, "google.key is required")
		}
		if c.Google.MaxPages < 1 {
			errs = append(errs, "google.max_pages must be >= 1")
		}
		if c.Google.MaxResults < 1 {
			errs = append(errs, "google.max_results must be >= 1")
		}
		switch c.LLM.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		case "gemini":
			if c.Gemini.Key == "" {
				errs = append(errs, "gemini.key is required")
			}
		default:
			errs = append(errs, "llm.provider must be anthropic or gemini")
		}
		if c.Cache.FreshnessDays <= 0 {
			errs = append(errs, "cache.freshness_days must be > 0")
		}
		if c.Cache.RadiusMeters <= 0 {
			errs = append(errs, "cache.radius_meters must be > 0")
		}
		if c.Cache.CityMatch != CityMatchExact && c.Cache.CityMatch != CityMatchSubstring {
			errs = append(errs, "cache.city_match must be exact or substring")
		}
	case "migrate":
		storeChecks()
	case "populate":
		if c.Populate.BaseURL == "" {
			errs = append(errs, "populate.base_url is required")
		}
		if c.Populate.RequestsPerSecond <= 0 {
			errs = append(errs, "populate.requests_per_second must be > 0")
		}
		if c.Populate.Concurrency < 1 || c.Populate.Concurrency > 10 {
			errs = append(errs, "populate.concurrency must be between 1 and 10")
		}
		if c.Populate.Archive && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
			errs = append(errs, "archive.endpoint and archive.bucket are required when populate.archive is set")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Google.Key = mask(c.Google.Key)
	c.Anthropic.Key = mask(c.Anthropic.Key)
	c.Gemini.Key = mask(c.Gemini.Key)
	c.Archive.AccessKey = mask(c.Archive.AccessKey)
	c.Archive.SecretKey = mask(c.Archive.SecretKey)
	if c.Store.DatabaseURL != "" && c.Store.Driver == "postgres" {
		c.Store.DatabaseURL = mask(c.Store.DatabaseURL)
	}
	c.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return c
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
