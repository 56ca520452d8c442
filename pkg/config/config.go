// Package config loads the application YAML configuration with environment
// variable expansion, defaults and validation. Missing provider or
// completion-service API keys are configuration errors and fatal at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/briefwire/briefwire/pkg/scoring"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:briefwire.db?cache=shared&mode=rwc,description=Cache database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Cache database configuration"`

	Providers ProvidersConfig `yaml:"providers" json:"providers" jsonschema:"description=News search provider configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=Completion service configuration for ranking and summarization"`

	Scoring scoring.Weights `yaml:"scoring" json:"scoring" jsonschema:"description=Deterministic scoring weights"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch" jsonschema:"description=Fetch orchestration configuration"`

	Topics []string `yaml:"topics" json:"topics" jsonschema:"description=Topics to build digests for"`
}

// ProvidersConfig holds per-provider API settings
type ProvidersConfig struct {
	NewsAPI struct {
		APIKey     string `yaml:"api_key" json:"api_key" jsonschema:"required,description=newsapi.org API key (supports ${ENV} expansion)"`
		PageSize   int    `yaml:"page_size" json:"page_size" jsonschema:"default=25,description=Results per request"`
		DailyQuota int    `yaml:"daily_quota" json:"daily_quota" jsonschema:"default=100,description=Daily request budget"`
	} `yaml:"newsapi" json:"newsapi"`

	GNews struct {
		APIKey     string `yaml:"api_key" json:"api_key" jsonschema:"required,description=gnews.io API key (supports ${ENV} expansion)"`
		MaxResults int    `yaml:"max_results" json:"max_results" jsonschema:"default=25,description=Results per request"`
		DailyQuota int    `yaml:"daily_quota" json:"daily_quota" jsonschema:"default=100,description=Daily request budget"`
	} `yaml:"gnews" json:"gnews"`

	RSS struct {
		Enabled    bool `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Enable the keyless Google News RSS fallback"`
		DailyQuota int  `yaml:"daily_quota" json:"daily_quota" jsonschema:"default=500,description=Daily request budget"`
	} `yaml:"rss" json:"rss"`

	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=20s,description=HTTP timeout per provider request"`
}

// LLMConfig holds completion-service settings
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint (empty for api.openai.com)"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"required,description=API key (supports ${ENV} expansion)"`
	Model       string        `yaml:"model" json:"model" jsonschema:"required,description=Model name (e.g. gpt-4o-mini)"`
	Temperature float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=1500,description=Maximum tokens in response"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Hard deadline for the editorial ranking call"`
}

// FetchConfig holds orchestration settings
type FetchConfig struct {
	RequestsPerTopic int           `yaml:"requests_per_topic" json:"requests_per_topic" jsonschema:"default=3,description=Estimated provider requests per topic for batch sizing"`
	BatchDelay       time.Duration `yaml:"batch_delay" json:"batch_delay" jsonschema:"default=2s,description=Fixed delay between topic batches"`
	StaggerDelay     time.Duration `yaml:"stagger_delay" json:"stagger_delay" jsonschema:"default=100ms,description=Delay between topic starts inside a batch"`
	DefaultBatchSize int           `yaml:"default_batch_size" json:"default_batch_size" jsonschema:"default=5,description=Batch size when quota is unlimited"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills zero values with sane defaults
func setDefaults(cfg *Config) {
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:briefwire.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	if cfg.Providers.NewsAPI.PageSize == 0 {
		cfg.Providers.NewsAPI.PageSize = 25
	}
	if cfg.Providers.NewsAPI.DailyQuota == 0 {
		cfg.Providers.NewsAPI.DailyQuota = 100
	}
	if cfg.Providers.GNews.MaxResults == 0 {
		cfg.Providers.GNews.MaxResults = 25
	}
	if cfg.Providers.GNews.DailyQuota == 0 {
		cfg.Providers.GNews.DailyQuota = 100
	}
	if cfg.Providers.RSS.DailyQuota == 0 {
		cfg.Providers.RSS.DailyQuota = 500
	}
	if cfg.Providers.Timeout == 0 {
		cfg.Providers.Timeout = 20 * time.Second
	}

	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1500
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	def := scoring.DefaultWeights()
	if cfg.Scoring.Relevance == 0 {
		cfg.Scoring.Relevance = def.Relevance
	}
	if cfg.Scoring.Recency == 0 {
		cfg.Scoring.Recency = def.Recency
	}
	if cfg.Scoring.SourceQuality == 0 {
		cfg.Scoring.SourceQuality = def.SourceQuality
	}
	if cfg.Scoring.PreferredBoost == 0 {
		cfg.Scoring.PreferredBoost = def.PreferredBoost
	}
	if cfg.Scoring.HalfLifeHours == 0 {
		cfg.Scoring.HalfLifeHours = def.HalfLifeHours
	}

	if cfg.Fetch.RequestsPerTopic == 0 {
		cfg.Fetch.RequestsPerTopic = 3
	}
	if cfg.Fetch.BatchDelay == 0 {
		cfg.Fetch.BatchDelay = 2 * time.Second
	}
	if cfg.Fetch.StaggerDelay == 0 {
		cfg.Fetch.StaggerDelay = 100 * time.Millisecond
	}
	if cfg.Fetch.DefaultBatchSize == 0 {
		cfg.Fetch.DefaultBatchSize = 5
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Providers.NewsAPI.APIKey == "" {
		return fmt.Errorf("providers.newsapi.api_key is required")
	}
	if cfg.Providers.GNews.APIKey == "" {
		return fmt.Errorf("providers.gnews.api_key is required")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.Scoring.HalfLifeHours < 0 {
		return fmt.Errorf("scoring.half_life_hours must be non-negative")
	}
	if cfg.Fetch.RequestsPerTopic < 1 {
		return fmt.Errorf("fetch.requests_per_topic must be at least 1")
	}
	return nil
}
