package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWSRELAY_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	platformUserEnv   = "PLATFORM_USERNAME"
	platformPassEnv   = "PLATFORM_PASSWORD"
	platformURLEnv    = "PLATFORM_BASE_URL"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	mlURLEnv          = "ML_INFERENCE_URL"
	mlAPIKeyEnv       = "ML_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	redisAddrEnv      = "REDIS_ADDR"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Sources       []SourceConfig     `yaml:"sources"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	ML            MLConfig           `yaml:"ml"`
	Posting       PostingConfig      `yaml:"posting"`
	Platform      PlatformConfig     `yaml:"platform"`
	Session       SessionConfig      `yaml:"session"`
	Render        RenderConfig       `yaml:"render"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Retention     RetentionConfig    `yaml:"retention"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// FetchConfig shapes every outbound page request.
type FetchConfig struct {
	UserAgent      string        `yaml:"userAgent"`
	AcceptLanguage string        `yaml:"acceptLanguage"`
	Timeout        time.Duration `yaml:"timeout"`
	RequestDelay   time.Duration `yaml:"requestDelay"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes"`
}

// IngestConfig bounds a single ingestion run.
type IngestConfig struct {
	Concurrency     int `yaml:"concurrency"`
	MinBodyLength   int `yaml:"minBodyLength"`
	ArticlesPerFeed int `yaml:"articlesPerFeed"`
}

// SourceConfig describes one news site and how to extract from it.
type SourceConfig struct {
	Name          string          `yaml:"name"`
	Profile       string          `yaml:"profile"`
	BaseURL       string          `yaml:"baseUrl"`
	Feeds         []string        `yaml:"feeds"`
	Listings      []ListingConfig `yaml:"listings"`
	Selectors     SelectorConfig  `yaml:"selectors"`
	MinBodyLength int             `yaml:"minBodyLength"`
	Disabled      bool            `yaml:"disabled"`
}

// ListingConfig is a section page whose links become article stubs.
type ListingConfig struct {
	URL         string `yaml:"url"`
	LinkPattern string `yaml:"linkPattern"`
}

// SelectorConfig carries per-field selector hints tried before the profile's own.
type SelectorConfig struct {
	Headline []string `yaml:"headline"`
	Content  []string `yaml:"content"`
	Author   []string `yaml:"author"`
	Date     []string `yaml:"date"`
	Image    []string `yaml:"image"`
}

// AnalysisConfig picks the analyzer backend and content filters.
type AnalysisConfig struct {
	Backend    string              `yaml:"backend"`
	Categories map[string][]string `yaml:"categories"`
	Filters    FilterConfig        `yaml:"filters"`
	BatchSize  int                 `yaml:"batchSize"`
}

// FilterConfig decides which ingested articles are worth analysing.
type FilterConfig struct {
	MinWordCount     int      `yaml:"minWordCount"`
	MaxAgeHours      int      `yaml:"maxAgeHours"`
	ExcludeKeywords  []string `yaml:"excludeKeywords"`
	RequiredKeywords []string `yaml:"requiredKeywords"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// MLConfig describes the inference service.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// PostingConfig holds slot and eligibility rules.
type PostingConfig struct {
	PreferredTimes     []string       `yaml:"preferredTimes"`
	MinIntervalHours   float64        `yaml:"minIntervalHours"`
	MaxPostsPerDay     int            `yaml:"maxPostsPerDay"`
	Timezone           string         `yaml:"timezone"`
	AutoPostCategories []string       `yaml:"autoPostCategories"`
	UrgencyKeywords    []string       `yaml:"urgencyKeywords"`
	MinWordsForAuto    int            `yaml:"minWordsForAuto"`
	RecentWindow       time.Duration  `yaml:"recentWindow"`
	MaxCaptionLength   int            `yaml:"maxCaptionLength"`
	MaxHashtags        int            `yaml:"maxHashtags"`
	BaseHashtags       []string       `yaml:"baseHashtags"`
	location           *time.Location `yaml:"-"`
}

// Location resolves the posting timezone string to a time.Location.
func (p PostingConfig) Location() *time.Location {
	if p.location != nil {
		return p.location
	}
	return time.UTC
}

// PlatformConfig points at the publishing gateway.
type PlatformConfig struct {
	BaseURL       string        `yaml:"baseUrl"`
	Account       string        `yaml:"account"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Demo          bool          `yaml:"demo"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxImageBytes int64         `yaml:"maxImageBytes"`
	UploadDelay   time.Duration `yaml:"uploadDelay"`
	MaxRetries    int           `yaml:"maxRetries"`
}

// SessionConfig selects where authenticated state is persisted.
type SessionConfig struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redisAddr"`
	RedisDB   int    `yaml:"redisDb"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// RenderConfig drives the reference image renderer.
type RenderConfig struct {
	OutputDir string `yaml:"outputDir"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

// SchedulerConfig sets the background task cadence.
type SchedulerConfig struct {
	Tick       time.Duration `yaml:"tick"`
	Ingest     time.Duration `yaml:"ingest"`
	Publish    time.Duration `yaml:"publish"`
	Engagement time.Duration `yaml:"engagement"`
	Cleanup    time.Duration `yaml:"cleanup"`
	Analytics  time.Duration `yaml:"analytics"`
}

// RetentionConfig bounds how long data is kept.
type RetentionConfig struct {
	Days      int `yaml:"days"`
	ImageDays int `yaml:"imageDays"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// MetricsConfig exposes the prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads .env, the YAML file (explicit path or NEWSRELAY_CONFIG) over
// defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg = mergeConfig(defaultConfig(), cfg)
	cfg.bindTimezone()

	return cfg, nil
}

// Parse builds a config from raw YAML without touching the environment.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = mergeConfig(defaultConfig(), cfg)
	cfg.bindTimezone()
	return cfg, nil
}

// EnabledSources filters out disabled sources.
func (c Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, src := range c.Sources {
		if !src.Disabled {
			out = append(out, src)
		}
	}
	return out
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{databaseDriverEnv, &c.Database.Driver},
		{databaseDSNEnv, &c.Database.DSN},
		{platformUserEnv, &c.Platform.Username},
		{platformPassEnv, &c.Platform.Password},
		{platformURLEnv, &c.Platform.BaseURL},
		{chatGPTAPIKeyEnv, &c.ChatGPT.APIKey},
		{chatGPTModelEnv, &c.ChatGPT.Model},
		{mlURLEnv, &c.ML.InferenceURL},
		{mlAPIKeyEnv, &c.ML.APIKey},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{redisAddrEnv, &c.Session.RedisAddr},
		{logLevelEnv, &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Posting.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc = time.UTC
	}
	c.Posting.location = loc
}

// mergeConfig restores defaults for values the file left zero or invalid.
func mergeConfig(base, override Config) Config {
	out := override

	if out.Logging.Level == "" {
		out.Logging.Level = base.Logging.Level
	}
	if out.Database.Driver == "" {
		out.Database.Driver = base.Database.Driver
	}
	if out.Database.DSN == "" && out.Database.Driver == base.Database.Driver {
		out.Database.DSN = base.Database.DSN
	}
	out.Database.Driver = strings.ToLower(out.Database.Driver)

	if out.Fetch.UserAgent == "" {
		out.Fetch.UserAgent = base.Fetch.UserAgent
	}
	if out.Fetch.AcceptLanguage == "" {
		out.Fetch.AcceptLanguage = base.Fetch.AcceptLanguage
	}
	if out.Fetch.Timeout <= 0 {
		out.Fetch.Timeout = base.Fetch.Timeout
	}
	if out.Fetch.RequestDelay < 0 {
		out.Fetch.RequestDelay = base.Fetch.RequestDelay
	}
	if out.Fetch.MaxBodyBytes <= 0 {
		out.Fetch.MaxBodyBytes = base.Fetch.MaxBodyBytes
	}

	if out.Ingest.Concurrency <= 0 {
		out.Ingest.Concurrency = base.Ingest.Concurrency
	}
	if out.Ingest.MinBodyLength <= 0 {
		out.Ingest.MinBodyLength = base.Ingest.MinBodyLength
	}
	if out.Ingest.ArticlesPerFeed <= 0 {
		out.Ingest.ArticlesPerFeed = base.Ingest.ArticlesPerFeed
	}

	if out.Analysis.Backend == "" {
		out.Analysis.Backend = base.Analysis.Backend
	}
	if len(out.Analysis.Categories) == 0 {
		out.Analysis.Categories = base.Analysis.Categories
	}
	if out.Analysis.BatchSize <= 0 {
		out.Analysis.BatchSize = base.Analysis.BatchSize
	}

	if out.ChatGPT.Endpoint == "" {
		out.ChatGPT.Endpoint = base.ChatGPT.Endpoint
	}
	if out.ChatGPT.Model == "" {
		out.ChatGPT.Model = base.ChatGPT.Model
	}
	if out.ChatGPT.SystemPrompt == "" {
		out.ChatGPT.SystemPrompt = base.ChatGPT.SystemPrompt
	}

	p := &out.Posting
	if len(p.PreferredTimes) == 0 {
		p.PreferredTimes = base.Posting.PreferredTimes
	}
	if p.MinIntervalHours <= 0 {
		p.MinIntervalHours = base.Posting.MinIntervalHours
	}
	if p.MaxPostsPerDay <= 0 {
		p.MaxPostsPerDay = base.Posting.MaxPostsPerDay
	}
	if p.Timezone == "" {
		p.Timezone = base.Posting.Timezone
	}
	if len(p.AutoPostCategories) == 0 {
		p.AutoPostCategories = base.Posting.AutoPostCategories
	}
	if len(p.UrgencyKeywords) == 0 {
		p.UrgencyKeywords = base.Posting.UrgencyKeywords
	}
	if p.MinWordsForAuto <= 0 {
		p.MinWordsForAuto = base.Posting.MinWordsForAuto
	}
	if p.RecentWindow <= 0 {
		p.RecentWindow = base.Posting.RecentWindow
	}
	if p.MaxCaptionLength <= 0 {
		p.MaxCaptionLength = base.Posting.MaxCaptionLength
	}
	if p.MaxHashtags <= 0 {
		p.MaxHashtags = base.Posting.MaxHashtags
	}
	if len(p.BaseHashtags) == 0 {
		p.BaseHashtags = base.Posting.BaseHashtags
	}

	if out.Platform.Account == "" {
		out.Platform.Account = out.Platform.Username
	}
	if out.Platform.Account == "" {
		out.Platform.Account = base.Platform.Account
	}
	if out.Platform.Timeout <= 0 {
		out.Platform.Timeout = base.Platform.Timeout
	}
	if out.Platform.MaxImageBytes <= 0 {
		out.Platform.MaxImageBytes = base.Platform.MaxImageBytes
	}
	if out.Platform.MaxRetries <= 0 {
		out.Platform.MaxRetries = base.Platform.MaxRetries
	}
	if out.Platform.BaseURL == "" && !out.Platform.Demo {
		out.Platform.Demo = true
	}

	if out.Session.Backend == "" {
		out.Session.Backend = base.Session.Backend
	}
	if out.Session.Dir == "" {
		out.Session.Dir = base.Session.Dir
	}
	if out.Session.KeyPrefix == "" {
		out.Session.KeyPrefix = base.Session.KeyPrefix
	}

	if out.Render.OutputDir == "" {
		out.Render.OutputDir = base.Render.OutputDir
	}
	if out.Render.Width <= 0 {
		out.Render.Width = base.Render.Width
	}
	if out.Render.Height <= 0 {
		out.Render.Height = base.Render.Height
	}

	s := &out.Scheduler
	for _, d := range []struct{ dst, def *time.Duration }{
		{&s.Tick, &base.Scheduler.Tick},
		{&s.Ingest, &base.Scheduler.Ingest},
		{&s.Publish, &base.Scheduler.Publish},
		{&s.Engagement, &base.Scheduler.Engagement},
		{&s.Cleanup, &base.Scheduler.Cleanup},
		{&s.Analytics, &base.Scheduler.Analytics},
	} {
		if *d.dst <= 0 {
			*d.dst = *d.def
		}
	}

	if out.Retention.Days <= 0 {
		out.Retention.Days = base.Retention.Days
	}
	if out.Retention.ImageDays <= 0 {
		out.Retention.ImageDays = base.Retention.ImageDays
	}

	if out.Notifications.Telegram.APIURL == "" {
		out.Notifications.Telegram.APIURL = base.Notifications.Telegram.APIURL
	}

	if len(out.Sources) == 0 {
		out.Sources = base.Sources
	}

	return out
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "newsrelay.db"},
		Fetch: FetchConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 NewsRelay/1.0",
			AcceptLanguage: "en-CA,en;q=0.9",
			Timeout:        30 * time.Second,
			RequestDelay:   2 * time.Second,
			MaxBodyBytes:   5 << 20,
		},
		Ingest: IngestConfig{Concurrency: 3, MinBodyLength: 200, ArticlesPerFeed: 10},
		Analysis: AnalysisConfig{
			Backend: "heuristic",
			Categories: map[string][]string{
				"breaking":    {"breaking", "urgent", "alert", "developing"},
				"politics":    {"government", "election", "parliament", "minister", "policy", "vote"},
				"economy":     {"economy", "inflation", "recession", "gdp", "unemployment", "market"},
				"health":      {"health", "hospital", "vaccine", "pandemic", "doctor"},
				"technology":  {"technology", "ai", "cyber", "digital", "software"},
				"environment": {"climate", "environment", "carbon", "emissions", "wildfire"},
			},
			Filters:   FilterConfig{MinWordCount: 100, MaxAgeHours: 24},
			BatchSize: 50,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You analyse news articles and answer with strict JSON.",
		},
		Posting: PostingConfig{
			PreferredTimes:     []string{"09:00", "12:00", "15:00", "18:00", "21:00"},
			MinIntervalHours:   3,
			MaxPostsPerDay:     5,
			Timezone:           defaultTimezone,
			AutoPostCategories: []string{"breaking", "politics", "economy"},
			UrgencyKeywords:    []string{"breaking", "urgent", "alert", "developing"},
			MinWordsForAuto:    200,
			RecentWindow:       24 * time.Hour,
			MaxCaptionLength:   2200,
			MaxHashtags:        30,
			BaseHashtags:       []string{"#news", "#update"},
			location:           time.UTC,
		},
		Platform: PlatformConfig{
			Account:       "default",
			Timeout:       60 * time.Second,
			MaxImageBytes: 8 << 20,
			UploadDelay:   0,
			MaxRetries:    3,
		},
		Session:   SessionConfig{Backend: "file", Dir: "sessions", KeyPrefix: "newsrelay:session:"},
		Render:    RenderConfig{OutputDir: "rendered", Width: 1080, Height: 1080},
		Scheduler: SchedulerConfig{
			Tick:       time.Minute,
			Ingest:     30 * time.Minute,
			Publish:    5 * time.Minute,
			Engagement: 2 * time.Hour,
			Cleanup:    24 * time.Hour,
			Analytics:  24 * time.Hour,
		},
		Retention: RetentionConfig{Days: 30, ImageDays: 7},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
		Sources: []SourceConfig{
			{
				Name:    "cbc",
				Profile: "cbc",
				BaseURL: "https://www.cbc.ca",
				Feeds:   []string{"https://www.cbc.ca/cmlink/rss-topstories"},
			},
			{
				Name:          "globalnews",
				Profile:       "globalnews",
				BaseURL:       "https://globalnews.ca",
				Feeds:         []string{"https://globalnews.ca/feed/"},
				MinBodyLength: 100,
			},
		},
	}
}
