package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Batch size bounds accepted by Validate.
const (
	MinBatchSize = 50
	MaxBatchSize = 100
)

// Config holds the full application configuration.
type Config struct {
	App     AppConfig     `yaml:"app" mapstructure:"app"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	SerpAPI SerpAPIConfig `yaml:"serpapi" mapstructure:"serpapi"`
	Google  GoogleConfig  `yaml:"google" mapstructure:"google"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// AppConfig identifies the service.
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
}

// EnrichConfig configures the job pipeline.
type EnrichConfig struct {
	BatchSize          int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxRetries         int `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBaseDelayMs   int `yaml:"retry_base_delay_ms" mapstructure:"retry_base_delay_ms"`
	RequestTimeoutSecs int `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	RateLimitPerSecond int `yaml:"rate_limit_per_second" mapstructure:"rate_limit_per_second"`
	MaxConcurrency     int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// RetryBaseDelay returns the linear backoff base as a duration.
func (e EnrichConfig) RetryBaseDelay() time.Duration {
	return time.Duration(e.RetryBaseDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout for provider calls.
func (e EnrichConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutSecs) * time.Second
}

// SearchConfig holds the optional generic website search provider.
type SearchConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
	Key string `yaml:"key" mapstructure:"key"`
}

// Enabled reports whether both URL and key are set.
func (s SearchConfig) Enabled() bool {
	return s.URL != "" && s.Key != ""
}

// SerpAPIConfig holds SerpApi settings for the website search fallback.
type SerpAPIConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
	Key string `yaml:"key" mapstructure:"key"`
}

// GoogleConfig holds Google Places settings for the contact lookup.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int `yaml:"port" mapstructure:"port"`
	UploadRatePerMinute int `yaml:"upload_rate_per_minute" mapstructure:"upload_rate_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "company_enrichment_system")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("enrich.batch_size", 100)
	v.SetDefault("enrich.max_retries", 3)
	v.SetDefault("enrich.retry_base_delay_ms", 500)
	v.SetDefault("enrich.request_timeout_secs", 8)
	v.SetDefault("enrich.rate_limit_per_second", 10)
	v.SetDefault("enrich.max_concurrency", 20)
	v.SetDefault("search.url", "")
	v.SetDefault("search.key", "")
	v.SetDefault("serpapi.url", "https://serpapi.com/search.json")
	v.SetDefault("serpapi.key", "")
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.upload_rate_per_minute", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings required by the given mode ("enrich" or
// "serve"). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "enrich", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	e := c.Enrich
	if e.BatchSize < MinBatchSize || e.BatchSize > MaxBatchSize {
		problems = append(problems, fmt.Sprintf("enrich.batch_size must be between %d and %d", MinBatchSize, MaxBatchSize))
	}
	if e.MaxRetries < 1 {
		problems = append(problems, "enrich.max_retries must be >= 1")
	}
	if e.MaxConcurrency < 1 {
		problems = append(problems, "enrich.max_concurrency must be >= 1")
	}
	if e.RetryBaseDelayMs < 0 {
		problems = append(problems, "enrich.retry_base_delay_ms must be >= 0")
	}
	if e.RequestTimeoutSecs <= 0 {
		problems = append(problems, "enrich.request_timeout_secs must be > 0")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.UploadRatePerMinute <= 0 {
			problems = append(problems, "server.upload_rate_per_minute must be > 0")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy with API keys masked, suitable for printing.
func (c *Config) Redacted() Config {
	out := *c
	out.Search.Key = mask(out.Search.Key)
	out.SerpAPI.Key = mask(out.SerpAPI.Key)
	out.Google.Key = mask(out.Google.Key)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
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
