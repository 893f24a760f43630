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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Workspace  WorkspaceConfig  `yaml:"workspace" mapstructure:"workspace"`
	Planner    PlannerConfig    `yaml:"planner" mapstructure:"planner"`
	Feeds      FeedsConfig      `yaml:"feeds" mapstructure:"feeds"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. The pool settings only
// apply to the postgres driver.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// WorkspaceConfig describes the channel the planner produces for.
type WorkspaceConfig struct {
	VerticalID     string  `yaml:"vertical_id" mapstructure:"vertical_id"`
	BrandTone      string  `yaml:"brand_tone" mapstructure:"brand_tone"`
	CPMBaseline    float64 `yaml:"cpm_baseline" mapstructure:"cpm_baseline"`
	TargetLanguage string  `yaml:"target_language" mapstructure:"target_language"`
	PresetsPath    string  `yaml:"presets_path" mapstructure:"presets_path"`
}

// PlannerConfig configures the planning pipeline.
type PlannerConfig struct {
	MaxExpandAttempts int `yaml:"max_expand_attempts" mapstructure:"max_expand_attempts"`
	CallTimeoutSecs   int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	MaxRetries        int `yaml:"max_retries" mapstructure:"max_retries"`
}

// FeedsConfig configures trend and article feed ingestion.
type FeedsConfig struct {
	TrendCSVURL   string   `yaml:"trend_csv_url" mapstructure:"trend_csv_url"`
	RateCardXLSX  string   `yaml:"rate_card_xlsx" mapstructure:"rate_card_xlsx"`
	RSSFeeds      []string `yaml:"rss_feeds" mapstructure:"rss_feeds"`
	ArchiveFTPURL string   `yaml:"archive_ftp_url" mapstructure:"archive_ftp_url"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OutreachConfig configures PR article outreach.
type OutreachConfig struct {
	MaxConcurrentArticles int     `yaml:"max_concurrent_articles" mapstructure:"max_concurrent_articles"`
	FitThreshold          float64 `yaml:"fit_threshold" mapstructure:"fit_threshold"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// MonitoringConfig configures background health checks and alerting.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	FallbackRateThreshold float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	CostLimitUSD          float64 `yaml:"cost_limit_usd" mapstructure:"cost_limit_usd"`
	ReviewBacklogLimit    int     `yaml:"review_backlog_limit" mapstructure:"review_backlog_limit"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "studio.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("workspace.vertical_id", "personal_finance")
	v.SetDefault("workspace.brand_tone", "direct, plainspoken, no hype")
	v.SetDefault("workspace.cpm_baseline", 8.0)
	v.SetDefault("workspace.target_language", "en")
	v.SetDefault("planner.max_expand_attempts", 3)
	v.SetDefault("planner.call_timeout_secs", 60)
	v.SetDefault("planner.max_retries", 3)
	v.SetDefault("feeds.rate_per_second", 2.0)
	v.SetDefault("feeds.timeout_secs", 30)
	v.SetDefault("outreach.max_concurrent_articles", 5)
	v.SetDefault("outreach.fit_threshold", 0.6)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.fallback_rate_threshold", 2.0)
	v.SetDefault("monitoring.review_backlog_limit", 50)

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

// Validate checks the configuration for the given run mode. Modes gate
// which credentials are mandatory: "plan" needs the LLM and store,
// "outreach" additionally needs Notion, "serve" needs a listen port.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(cond bool, msg string) {
		if cond {
			problems = append(problems, msg)
		}
	}

	check(c.Planner.MaxExpandAttempts < 1 || c.Planner.MaxExpandAttempts > 10,
		"planner.max_expand_attempts must be between 1 and 10")
	check(c.Outreach.FitThreshold < 0 || c.Outreach.FitThreshold > 1,
		"outreach.fit_threshold must be in [0,1]")
	check(c.Outreach.MaxConcurrentArticles < 1 || c.Outreach.MaxConcurrentArticles > 50,
		"outreach.max_concurrent_articles must be between 1 and 50")
	check(c.Workspace.CPMBaseline < 0, "workspace.cpm_baseline must be >= 0")

	switch mode {
	case "plan":
		check(c.Anthropic.Key == "", "anthropic.key is required")
		check(c.Store.DatabaseURL == "", "store.database_url is required")
	case "outreach":
		check(c.Anthropic.Key == "", "anthropic.key is required")
		check(c.Store.DatabaseURL == "", "store.database_url is required")
		check(c.Notion.Token == "", "notion.token is required")
		check(c.Notion.ReviewDB == "", "notion.review_db is required")
	case "serve":
		check(c.Server.Port <= 0, "server.port must be > 0")
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
