package config

import (
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"` // optional, output is duplicated to this file
}

// RedisConfig holds redis connection settings for the run log.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`      // list key holding recent runs
	MaxRuns  int    `mapstructure:"max_runs"` // list is trimmed to this length
}

// RedditConfig holds API credentials and transport settings.
type RedditConfig struct {
	ClientID     string  `mapstructure:"client_id"`
	ClientSecret string  `mapstructure:"client_secret"`
	UserAgent    string  `mapstructure:"user_agent"`
	BaseURL      string  `mapstructure:"base_url"`   // overrides the API host, mostly for tests
	AuthURL      string  `mapstructure:"auth_url"`   // token endpoint
	Timeout      string  `mapstructure:"timeout"`    // duration string, e.g., "15s"
	RateLimit    float64 `mapstructure:"rate_limit"` // requests per second
}

// CommentsConfig controls comment collection for stored posts.
type CommentsConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Limit     int  `mapstructure:"limit"`
	MinLength int  `mapstructure:"min_length"`
}

// OpenAIConfig holds the analysis model parameters.
type OpenAIConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Model             string  `mapstructure:"model"`
	SystemPrompt      string  `mapstructure:"system_prompt"`
	Temperature       float32 `mapstructure:"temperature"`
	MaxInputTokens    int     `mapstructure:"max_input_tokens"`
	MaxResponseTokens int     `mapstructure:"max_response_tokens"`
	Timeout           string  `mapstructure:"timeout"`
}

// DatabaseConfig points at the SQLite file shared by collector and dashboard.
type DatabaseConfig struct {
	File string `mapstructure:"file"`
}

// DashboardConfig controls the web dashboard.
type DashboardConfig struct {
	Addr        string `mapstructure:"addr"`
	RecentPosts int    `mapstructure:"recent_posts"`
	ReportItems int    `mapstructure:"report_items"`
}

// Config is the top-level configuration structure.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Reddit    RedditConfig    `mapstructure:"reddit"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Comments  CommentsConfig  `mapstructure:"comments"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`

	Subreddit     string              `mapstructure:"subreddit"`
	SearchQuery   string              `mapstructure:"search_query"`
	Sort          string              `mapstructure:"sort"`        // relevance, hot, top, new, comments
	TimeFilter    string              `mapstructure:"time_filter"` // hour, day, week, month, year, all
	BatchSize     int                 `mapstructure:"batch_size"`
	MaxPagination int                 `mapstructure:"max_pagination"`
	PostMinLength int                 `mapstructure:"post_min_length"`
	Keywords      map[string][]string `mapstructure:"keywords"`
	OutputFile    string              `mapstructure:"output_file"`
	Year          int                 `mapstructure:"year"` // 0 means no year filter
}

const defaultSystemPrompt = "You are a senior penetration tester reviewing community discussions. " +
	"Summarize the recurring themes, study resources, and pitfalls in a short markdown report."

// Defaults for keys where an explicit zero is a valid setting.
const (
	DefaultPostMinLength    = 100
	DefaultCommentMinLength = 20
	DefaultTemperature      = 0.4
)

// SetDefaults registers defaults for keys whose zero value is meaningful, so
// they only apply when the key is absent. Everything else is handled by
// FillDefaults after Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("post_min_length", DefaultPostMinLength)
	v.SetDefault("comments.min_length", DefaultCommentMinLength)
	v.SetDefault("openai.temperature", DefaultTemperature)
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "subreddit-insights:runs"
	}
	if c.Redis.MaxRuns <= 0 {
		c.Redis.MaxRuns = 50
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "subreddit-insights/1.0"
	}
	if c.Reddit.Timeout == "" {
		c.Reddit.Timeout = "15s"
	}
	if c.Reddit.RateLimit <= 0 {
		// 100 requests per minute for OAuth clients
		c.Reddit.RateLimit = 100.0 / 60.0
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if strings.TrimSpace(c.OpenAI.SystemPrompt) == "" {
		c.OpenAI.SystemPrompt = defaultSystemPrompt
	}
	if c.OpenAI.MaxInputTokens <= 0 {
		c.OpenAI.MaxInputTokens = 3000
	}
	if c.OpenAI.MaxResponseTokens <= 0 {
		c.OpenAI.MaxResponseTokens = 500
	}
	if c.OpenAI.Timeout == "" {
		c.OpenAI.Timeout = "300s"
	}
	if c.Database.File == "" {
		c.Database.File = "./data/posts.db"
	}
	if c.Comments.Limit <= 0 {
		c.Comments.Limit = 50
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = "127.0.0.1:8501"
	}
	if c.Dashboard.RecentPosts <= 0 {
		c.Dashboard.RecentPosts = 10
	}
	if c.Dashboard.ReportItems <= 0 {
		c.Dashboard.ReportItems = 5
	}
	if c.Sort == "" {
		c.Sort = "new"
	}
	if c.TimeFilter == "" {
		c.TimeFilter = "year"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchSize > 100 {
		// reddit caps listing pages at 100
		c.BatchSize = 100
	}
	if c.MaxPagination <= 0 {
		c.MaxPagination = 5
	}
	if c.OutputFile == "" {
		c.OutputFile = "./reports/analysis.md"
	}
}
