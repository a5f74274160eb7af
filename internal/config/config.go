// Package config loads and validates linksync configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Bookmarks BookmarksConfig `mapstructure:"bookmarks"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the optional metrics/health listener.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// CrawlerConfig governs the newsletter walk.
type CrawlerConfig struct {
	StartURL           string `mapstructure:"start_url"`
	UserAgent          string `mapstructure:"user_agent"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	DelayMs            int    `mapstructure:"delay_ms"`
	MaxTotal           int    `mapstructure:"max_total"`
	SeenFile           string `mapstructure:"seen_file"`
	RefreshIntervalHrs int    `mapstructure:"refresh_interval_hours"`
}

// HeadlessConfig configures headless rendering for JS-shell pages.
type HeadlessConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	MaxParallel    int      `mapstructure:"max_parallel"`
	NavTimeoutSec  int      `mapstructure:"nav_timeout_seconds"`
	DomainQPS      float64  `mapstructure:"domain_qps"`
	MinHTMLBytes   int      `mapstructure:"min_html_bytes"`
	MarkerKeywords []string `mapstructure:"marker_keywords"`
	RequiredCSS    []string `mapstructure:"required_selectors"`
}

// CacheConfig sets the layered cache directory and namespace TTLs.
type CacheConfig struct {
	Dir               string `mapstructure:"dir"`
	ArticlesTTLDays   int    `mapstructure:"articles_ttl_days"`
	CollectionsTTLHrs int    `mapstructure:"collections_ttl_hours"`
}

// CorpusConfig selects where the newsletter corpus persists.
type CorpusConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// ArchiveConfig selects where raw page snapshots go.
type ArchiveConfig struct {
	// Backend is "none", "local", or "gcs".
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for crawl event notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// BookmarksConfig points at the bookmark server.
type BookmarksConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// MarkerTag names newsletter-sourced links. The odd default spelling
	// matches existing tagged data.
	MarkerTag string `mapstructure:"marker_tag"`
}

// LLMConfig selects the enrichment model backend.
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.user_agent", "linksync/0.1")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.delay_ms", 500)
	v.SetDefault("crawler.max_total", 10)
	v.SetDefault("crawler.seen_file", "data/seen_urls.txt")
	v.SetDefault("crawler.refresh_interval_hours", 24)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.domain_qps", 1.0)
	v.SetDefault("headless.min_html_bytes", 2048)
	v.SetDefault("cache.dir", "data/cache")
	v.SetDefault("cache.articles_ttl_days", 180)
	v.SetDefault("cache.collections_ttl_hours", 24)
	v.SetDefault("corpus.backend", "file")
	v.SetDefault("corpus.path", "data/newsletters.jsonl")
	v.SetDefault("corpus.table", "newsletter_records")
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.dir", "data/pages")
	v.SetDefault("bookmarks.timeout_seconds", 30)
	v.SetDefault("bookmarks.marker_tag", "unknow")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout_seconds", 60)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxTotal <= 0 {
		return fmt.Errorf("crawler.max_total must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Corpus.Backend {
	case "file":
		if c.Corpus.Path == "" {
			return fmt.Errorf("corpus.path must be set for the file backend")
		}
	case "postgres":
		if c.Corpus.DSN == "" {
			return fmt.Errorf("corpus.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("corpus.backend must be \"file\" or \"postgres\"")
	}
	switch c.Archive.Backend {
	case "none":
	case "local":
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir must be set for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend must be \"none\", \"local\", or \"gcs\"")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// CrawlTimeout converts the crawler timeout into a duration.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// RefreshInterval is how long a finished crawl suppresses the next one.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Crawler.RefreshIntervalHrs) * time.Hour
}
