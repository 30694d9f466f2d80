package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	appDirName        = "newspipeline"
	configPathEnv     = "NEWS_PIPELINE_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	newsAPIKeyEnv     = "NEWSAPI_KEY"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// DefaultCategories are fetched by the scheduler when none are configured.
var DefaultCategories = []string{"business", "technology", "science", "health", "general"}

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Source        SourceConfig       `yaml:"source"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	ML            MLConfig           `yaml:"ml"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// DatabaseConfig selects the driver and its connection string (a file path for sqlite).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines the cron expressions of the recurring jobs.
type SchedulerConfig struct {
	FetchCron   string         `yaml:"fetchCron"`
	SweepCron   string         `yaml:"sweepCron"`
	ProcessCron string         `yaml:"processCron"`
	Timezone    string         `yaml:"timezone"`
	location    *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// SourceConfig picks the news provider (newsapi, rss or arxiv) and the categories fetched on schedule.
type SourceConfig struct {
	Provider   string        `yaml:"provider"`
	Categories []string      `yaml:"categories"`
	NewsAPI    NewsAPIConfig `yaml:"newsapi"`
	RSS        RSSConfig     `yaml:"rss"`
	Arxiv      ArxivConfig   `yaml:"arxiv"`
}

// NewsAPIConfig describes the NewsAPI endpoint.
type NewsAPIConfig struct {
	BaseURL  string        `yaml:"baseUrl"`
	APIKey   string        `yaml:"apiKey"`
	Country  string        `yaml:"country"`
	PageSize int           `yaml:"pageSize"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RSSConfig lists feeds per category.
type RSSConfig struct {
	Feeds   []FeedConfig  `yaml:"feeds"`
	Timeout time.Duration `yaml:"timeout"`
}

// ArxivConfig lists arXiv listing pages per category.
type ArxivConfig struct {
	Listings   []FeedConfig  `yaml:"listings"`
	PageSize   int           `yaml:"pageSize"`
	MaxEntries int           `yaml:"maxEntries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// FeedConfig is a single RSS/Atom feed or arXiv listing.
type FeedConfig struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	URL      string `yaml:"url"`
}

// EnrichmentConfig sizes the worker pool and the retry policy.
type EnrichmentConfig struct {
	Workers          int           `yaml:"workers"`
	MaxRetries       int           `yaml:"maxRetries"`
	BaseDelay        time.Duration `yaml:"baseDelay"`
	MaxDelay         time.Duration `yaml:"maxDelay"`
	StuckTimeout     time.Duration `yaml:"stuckTimeout"`
	SummarizeTimeout time.Duration `yaml:"summarizeTimeout"`
	PollInterval     time.Duration `yaml:"pollInterval"`
	BatchSize        int           `yaml:"batchSize"`
}

// SummarizerConfig picks the summarizer implementation: local, ml or chatgpt.
type SummarizerConfig struct {
	Provider  string `yaml:"provider"`
	Sentences int    `yaml:"sentences"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	BaseURL  string `yaml:"baseUrl"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MLConfig describes the remote summarization service.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// Load reads the YAML file named by NEWS_PIPELINE_CONFIG (if any) and applies environment overrides.
func Load() Config {
	cfg, err := LoadFrom(os.Getenv(configPathEnv))
	if err != nil {
		log.Printf("config: %v (falling back to defaults)", err)
		cfg = Default()
		cfg.applyEnvOverrides()
		cfg.Validate()
	}
	return cfg
}

// LoadFrom reads path (empty means defaults only), merges it over the defaults,
// applies environment overrides and normalises the result.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.Validate()
	return cfg, nil
}

// Validate clamps out-of-range values to usable ones instead of failing.
func (c *Config) Validate() {
	d := Default()
	e := &c.Enrichment
	if e.Workers < 1 {
		e.Workers = 1
	}
	if e.MaxRetries < 1 {
		e.MaxRetries = 1
	}
	if e.BaseDelay <= 0 {
		e.BaseDelay = d.Enrichment.BaseDelay
	}
	if e.MaxDelay < e.BaseDelay {
		e.MaxDelay = e.BaseDelay
	}
	if e.StuckTimeout <= 0 {
		e.StuckTimeout = d.Enrichment.StuckTimeout
	}
	if e.SummarizeTimeout <= 0 {
		e.SummarizeTimeout = d.Enrichment.SummarizeTimeout
	}
	if e.PollInterval <= 0 {
		e.PollInterval = d.Enrichment.PollInterval
	}
	if e.BatchSize < 1 {
		e.BatchSize = d.Enrichment.BatchSize
	}
	if c.Summarizer.Sentences < 1 {
		c.Summarizer.Sentences = d.Summarizer.Sentences
	}
	if len(c.Source.Categories) == 0 {
		c.Source.Categories = append([]string(nil), DefaultCategories...)
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Source.Provider = strings.ToLower(strings.TrimSpace(c.Source.Provider))
	c.Summarizer.Provider = strings.ToLower(strings.TrimSpace(c.Summarizer.Provider))
	c.bindTimezone()
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.Source.NewsAPI.APIKey = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc = time.UTC
		tz = defaultTimezone
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Scheduler.FetchCron != "" {
		base.Scheduler.FetchCron = override.Scheduler.FetchCron
	}
	if override.Scheduler.SweepCron != "" {
		base.Scheduler.SweepCron = override.Scheduler.SweepCron
	}
	if override.Scheduler.ProcessCron != "" {
		base.Scheduler.ProcessCron = override.Scheduler.ProcessCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Source = mergeSource(base.Source, override.Source)
	base.Enrichment = mergeEnrichment(base.Enrichment, override.Enrichment)

	if override.Summarizer.Provider != "" {
		base.Summarizer.Provider = override.Summarizer.Provider
	}
	if override.Summarizer.Sentences != 0 {
		base.Summarizer.Sentences = override.Summarizer.Sentences
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.BaseURL != "" {
		base.Notifications.Telegram.BaseURL = override.Notifications.Telegram.BaseURL
	}

	if override.ML.InferenceURL != "" {
		base.ML.InferenceURL = override.ML.InferenceURL
	}
	if override.ML.APIKey != "" {
		base.ML.APIKey = override.ML.APIKey
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	return base
}

func mergeSource(base, override SourceConfig) SourceConfig {
	if override.Provider != "" {
		base.Provider = override.Provider
	}
	if len(override.Categories) > 0 {
		base.Categories = override.Categories
	}
	if override.NewsAPI.BaseURL != "" {
		base.NewsAPI.BaseURL = override.NewsAPI.BaseURL
	}
	if override.NewsAPI.APIKey != "" {
		base.NewsAPI.APIKey = override.NewsAPI.APIKey
	}
	if override.NewsAPI.Country != "" {
		base.NewsAPI.Country = override.NewsAPI.Country
	}
	if override.NewsAPI.PageSize != 0 {
		base.NewsAPI.PageSize = override.NewsAPI.PageSize
	}
	if override.NewsAPI.Timeout != 0 {
		base.NewsAPI.Timeout = override.NewsAPI.Timeout
	}
	if len(override.RSS.Feeds) > 0 {
		base.RSS.Feeds = override.RSS.Feeds
	}
	if override.RSS.Timeout != 0 {
		base.RSS.Timeout = override.RSS.Timeout
	}
	if len(override.Arxiv.Listings) > 0 {
		base.Arxiv.Listings = override.Arxiv.Listings
	}
	if override.Arxiv.PageSize != 0 {
		base.Arxiv.PageSize = override.Arxiv.PageSize
	}
	if override.Arxiv.MaxEntries != 0 {
		base.Arxiv.MaxEntries = override.Arxiv.MaxEntries
	}
	if override.Arxiv.Timeout != 0 {
		base.Arxiv.Timeout = override.Arxiv.Timeout
	}
	return base
}

func mergeEnrichment(base, override EnrichmentConfig) EnrichmentConfig {
	if override.Workers != 0 {
		base.Workers = override.Workers
	}
	if override.MaxRetries != 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.BaseDelay != 0 {
		base.BaseDelay = override.BaseDelay
	}
	if override.MaxDelay != 0 {
		base.MaxDelay = override.MaxDelay
	}
	if override.StuckTimeout != 0 {
		base.StuckTimeout = override.StuckTimeout
	}
	if override.SummarizeTimeout != 0 {
		base.SummarizeTimeout = override.SummarizeTimeout
	}
	if override.PollInterval != 0 {
		base.PollInterval = override.PollInterval
	}
	if override.BatchSize != 0 {
		base.BatchSize = override.BatchSize
	}
	return base
}

// DefaultSQLitePath is the database file under the XDG data home.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, appDirName, "news.db")
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: DefaultSQLitePath()},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			FetchCron:   "*/30 * * * *",
			SweepCron:   "*/5 * * * *",
			ProcessCron: "* * * * *",
			Timezone:    defaultTimezone,
			location:    time.UTC,
		},
		Source: SourceConfig{
			Provider:   "newsapi",
			Categories: append([]string(nil), DefaultCategories...),
			NewsAPI: NewsAPIConfig{
				BaseURL:  "https://newsapi.org/v2",
				Country:  "us",
				PageSize: 20,
				Timeout:  30 * time.Second,
			},
			RSS: RSSConfig{Timeout: 20 * time.Second},
			Arxiv: ArxivConfig{
				Listings: []FeedConfig{
					{Name: "arXiv cs.AI", Category: "technology", URL: "https://arxiv.org/list/cs.AI/new"},
					{Name: "arXiv astro-ph", Category: "science", URL: "https://arxiv.org/list/astro-ph/new"},
				},
				PageSize:   50,
				MaxEntries: 200,
				Timeout:    20 * time.Second,
			},
		},
		Enrichment: EnrichmentConfig{
			Workers:          4,
			MaxRetries:       3,
			BaseDelay:        30 * time.Second,
			MaxDelay:         30 * time.Minute,
			StuckTimeout:     10 * time.Minute,
			SummarizeTimeout: 30 * time.Second,
			PollInterval:     15 * time.Second,
			BatchSize:        20,
		},
		Summarizer: SummarizerConfig{Provider: "local", Sentences: 3},
		ML:         MLConfig{InferenceURL: "http://localhost:8000"},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize news articles in at most three sentences.",
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BaseURL: "https://api.telegram.org"},
		},
	}
}
