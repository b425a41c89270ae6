// Package config loads and validates the TOML configuration file.
// Secrets (API keys, SMTP credentials) are never stored in the file;
// they are read from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Fetch    FetchConfig    `toml:"fetch"`
	Sources  SourcesConfig  `toml:"sources"`
	AI       AIConfig       `toml:"ai"`
	Email    EmailConfig    `toml:"email"`
	Output   OutputConfig   `toml:"output"`
	Storage  StorageConfig  `toml:"storage"`
	Schedule ScheduleConfig `toml:"schedule"`
}

type FetchConfig struct {
	Limit   int    `toml:"limit"`
	Timeout string `toml:"timeout"`
}

// TimeoutDuration returns the parsed per-source timeout. Validation
// guarantees the string parses.
func (f FetchConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(f.Timeout)
	return d
}

type SourcesConfig struct {
	HackerNews     Toggle    `toml:"hackernews"`
	GitHubTrending Toggle    `toml:"github_trending"`
	RSS            []RSSFeed `toml:"rss"`
}

// Toggle defaults to enabled when the section is absent from the file.
type Toggle struct {
	Enabled *bool `toml:"enabled"`
}

func (t Toggle) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

type RSSFeed struct {
	Name    string `toml:"name"`
	URL     string `toml:"url"`
	Enabled *bool  `toml:"enabled"`
}

func (f RSSFeed) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

type AIConfig struct {
	Provider string `toml:"provider"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`

	// APIKey comes from AI_API_KEY or DASHSCOPE_API_KEY, never the file.
	APIKey string `toml:"-"`
}

type EmailConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	From    string `toml:"from"`
	To      string `toml:"to"`
	Subject string `toml:"subject"`

	// Password comes from SMTP_PASSWORD, never the file.
	Password string `toml:"-"`
}

type OutputConfig struct {
	Dir string `toml:"dir"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron"`
}

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loadSecrets(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	// The zero config always validates.
	_ = validate(&cfg)
	loadSecrets(&cfg)
	return &cfg
}

func validate(cfg *Config) error {
	if cfg.Fetch.Limit == 0 {
		cfg.Fetch.Limit = 20
	}
	if cfg.Fetch.Limit < 0 {
		return fmt.Errorf("fetch.limit must be positive, got %d", cfg.Fetch.Limit)
	}

	if cfg.Fetch.Timeout == "" {
		cfg.Fetch.Timeout = "30s"
	}
	if _, err := time.ParseDuration(cfg.Fetch.Timeout); err != nil {
		return fmt.Errorf("invalid fetch.timeout: %w", err)
	}

	if len(cfg.Sources.RSS) == 0 {
		cfg.Sources.RSS = defaultFeeds()
	}
	for i, feed := range cfg.Sources.RSS {
		if feed.Name == "" {
			return fmt.Errorf("sources.rss[%d]: name is required", i)
		}
		if feed.URL == "" {
			return fmt.Errorf("sources.rss[%d] (%s): url is required", i, feed.Name)
		}
	}

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	switch cfg.AI.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("ai.provider must be openai or ollama, got %q", cfg.AI.Provider)
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "qwen-plus"
	}

	if cfg.Email.Port == 0 {
		cfg.Email.Port = 465
	}
	if cfg.Email.Subject == "" {
		cfg.Email.Subject = "newsbrief digest"
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "newsbrief.db"
	}

	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 8 * * *"
	}

	return nil
}

func loadSecrets(cfg *Config) {
	cfg.AI.APIKey = os.Getenv("AI_API_KEY")
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}
	cfg.Email.Password = os.Getenv("SMTP_PASSWORD")
}

// defaultFeeds is the built-in feed set used when the config file
// declares none.
func defaultFeeds() []RSSFeed {
	return []RSSFeed{
		{Name: "TechCrunch", URL: "https://techcrunch.com/feed/"},
		{Name: "36Kr", URL: "https://36kr.com/feed"},
		{Name: "SSPAI", URL: "https://sspai.com/feed"},
		{Name: "V2EX", URL: "https://www.v2ex.com/index.xml"},
		{Name: "InfoQ", URL: "https://www.infoq.cn/feed"},
	}
}
