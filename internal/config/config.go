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
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gateway   GatewayConfig   `yaml:"gateway" mapstructure:"gateway"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Sitemap   SitemapConfig   `yaml:"sitemap" mapstructure:"sitemap"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string   `yaml:"key" mapstructure:"key"`
	Models    []string `yaml:"models" mapstructure:"models"`
	MaxTokens int      `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GatewayConfig configures the shared model gateway's throttle and retry.
type GatewayConfig struct {
	MinIntervalSecs    float64 `yaml:"min_interval_secs" mapstructure:"min_interval_secs"`
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffSecs int     `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	MaxBackoffSecs     int     `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
}

// FetchConfig configures page fetching.
type FetchConfig struct {
	Render            bool   `yaml:"render" mapstructure:"render"`
	RenderTimeoutSecs int    `yaml:"render_timeout_secs" mapstructure:"render_timeout_secs"`
	HTTPTimeoutSecs   int    `yaml:"http_timeout_secs" mapstructure:"http_timeout_secs"`
	MaxChars          int    `yaml:"max_chars" mapstructure:"max_chars"`
	MaxBodyBytes      int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
	ReaderFallback    bool   `yaml:"reader_fallback" mapstructure:"reader_fallback"`
	// ChromePath overrides the Chrome binary lookup when set.
	ChromePath string `yaml:"chrome_path" mapstructure:"chrome_path"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SitemapConfig configures URL discovery.
type SitemapConfig struct {
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Paths            []string `yaml:"paths" mapstructure:"paths"`
	MaxChildSitemaps int      `yaml:"max_child_sitemaps" mapstructure:"max_child_sitemaps"`
	ExcludePaths     []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// CrawlConfig configures the per-domain crawl phase.
type CrawlConfig struct {
	MaxCaseStudies   int `yaml:"max_case_studies" mapstructure:"max_case_studies"`
	MaxPricingPages  int `yaml:"max_pricing_pages" mapstructure:"max_pricing_pages"`
	CacheTTLHours    int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	// BreakerThreshold stops one page bucket of a domain after this many
	// consecutive empty fetches. 0 disables it.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
}

// StoreConfig configures the checkpoint backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutputConfig configures report files.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	FeatureDB string `yaml:"feature_db" mapstructure:"feature_db"`
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

// ServerConfig configures the checkpoint API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultUserAgent is the desktop browser identity sent with every fetch.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.models", []string{"claude-haiku-4-5-20251001", "claude-sonnet-4-5-20250929"})
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("gateway.min_interval_secs", 4.5)
	v.SetDefault("gateway.max_attempts", 3)
	v.SetDefault("gateway.initial_backoff_secs", 60)
	v.SetDefault("gateway.max_backoff_secs", 300)
	v.SetDefault("fetch.render", true)
	v.SetDefault("fetch.render_timeout_secs", 25)
	v.SetDefault("fetch.http_timeout_secs", 30)
	v.SetDefault("fetch.max_chars", 30000)
	v.SetDefault("fetch.max_body_bytes", 2*1024*1024)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.reader_fallback", false)
	v.SetDefault("fetch.chrome_path", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("sitemap.timeout_secs", 15)
	v.SetDefault("sitemap.paths", []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml", "/wp-sitemap.xml", "/page-sitemap.xml"})
	v.SetDefault("sitemap.max_child_sitemaps", 20)
	v.SetDefault("sitemap.exclude_paths", []string{"/*.pdf", "/*.jpg", "/*.png", "/wp-content/*"})
	v.SetDefault("crawl.max_case_studies", 10)
	v.SetDefault("crawl.max_pricing_pages", 5)
	v.SetDefault("crawl.cache_ttl_hours", 24)
	v.SetDefault("crawl.breaker_threshold", 0)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", "output")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", "csv")
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

// Validate checks the keys a command mode needs. Modes: "research",
// "models", "serve", "checkpoint".
func (c *Config) Validate(mode string) error {
	var problems []string

	needsStore := func() {
		switch c.Store.Driver {
		case "file", "sqlite":
			if c.Store.Dir == "" {
				problems = append(problems, "store.dir is required")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		default:
			problems = append(problems, "store.driver must be file, sqlite or postgres")
		}
	}

	switch mode {
	case "research":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if len(c.Anthropic.Models) == 0 {
			problems = append(problems, "anthropic.models must not be empty")
		}
		if c.Gateway.MinIntervalSecs < 0 {
			problems = append(problems, "gateway.min_interval_secs must not be negative")
		}
		if c.Gateway.MaxAttempts < 1 {
			problems = append(problems, "gateway.max_attempts must be at least 1")
		}
		if c.Fetch.MaxChars <= 0 {
			problems = append(problems, "fetch.max_chars must be positive")
		}
		switch c.Output.Format {
		case "csv", "xlsx", "both":
		default:
			problems = append(problems, "output.format must be csv, xlsx or both")
		}
		needsStore()
	case "models":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		needsStore()
	case "checkpoint":
		needsStore()
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
