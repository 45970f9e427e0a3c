package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobintake/internal/model"
)

// Config is the root configuration for the jobintake pipeline.
type Config struct {
	PollingInterval time.Duration
	Database        DatabaseConfig
	Mailbox         MailboxConfig
	Feeds           FeedsConfig
	Limits          LimitsConfig
	Ingest          IngestConfig
	Classifier      ClassifierConfig
	Notification    NotificationConfig
	RateLimit       RateLimitConfig
	Retry           RetryConfig
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

// MailboxConfig controls the mailbox poller and its OAuth client.
type MailboxConfig struct {
	Enabled       bool
	Query         string
	MaxMessages   int
	UserID        string // mailbox user, "me" by default
	ClientID      string
	ClientSecret  string
	TokenURL      string // empty means the provider default
	EncryptionKey string // base64, 32 bytes decoded
}

// FeedsConfig controls the feed poller.
type FeedsConfig struct {
	Enabled       bool
	URLs          []string
	MaxItems      int
	AllowKeywords []string
	BlockKeywords []string
	JobDomains    []string
	SummaryMaxLen int
}

// LimitsConfig holds the job-link quotas shared by both pollers.
type LimitsConfig struct {
	PerItemJobLinks int
	PerRunJobLinks  int
}

// IngestConfig selects where accepted links are written.
type IngestConfig struct {
	Type     string // "log" or "http"
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// ClassifierConfig controls promotional-mail rejection.
type ClassifierConfig struct {
	Heuristic bool
	AI        AIConfig
}

// AIConfig controls the optional LLM classifier.
type AIConfig struct {
	Enabled bool
	BaseURL string // defaults to https://api.openai.com/v1
	Model   string
	APIKey  string // expanded from env var by Load
	Timeout time.Duration
}

// NotificationConfig controls where run summaries are reported.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// RateLimitConfig controls per-host politeness for feed fetches.
type RateLimitConfig struct {
	MinDelay time.Duration
}

// RetryConfig controls the feed fetch retry decorator.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultMailboxQuery  = "newer_than:7d"
)

// DefaultJobDomains is the feed domain allow-set used when none is configured.
var DefaultJobDomains = []string{
	"linkedin.com",
	"greenhouse.io",
	"lever.co",
	"ashbyhq.com",
	"myworkdayjobs.com",
	"indeed.com",
	"wellfound.com",
	"smartrecruiters.com",
	"workable.com",
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	PollingInterval string             `yaml:"polling_interval"`
	Database        rawDatabaseConfig  `yaml:"database"`
	Mailbox         rawMailboxConfig   `yaml:"mailbox"`
	Feeds           rawFeedsConfig     `yaml:"feeds"`
	Limits          rawLimitsConfig    `yaml:"limits"`
	Ingest          rawIngestConfig    `yaml:"ingest"`
	Classifier      rawClassifier      `yaml:"classifier"`
	Notification    NotificationConfig `yaml:"notification"`
	RateLimit       rawRateLimitConfig `yaml:"rate_limit"`
	Retry           rawRetryConfig     `yaml:"retry"`
}

type rawDatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type rawMailboxConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Query         string `yaml:"query"`
	MaxMessages   int    `yaml:"max_messages"`
	UserID        string `yaml:"user_id"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	TokenURL      string `yaml:"token_url"`
	EncryptionKey string `yaml:"encryption_key"`
}

type rawFeedsConfig struct {
	Enabled       bool        `yaml:"enabled"`
	URLs          []string    `yaml:"urls"`
	MaxItems      int         `yaml:"max_items"`
	AllowKeywords keywordList `yaml:"allow_keywords"`
	BlockKeywords keywordList `yaml:"block_keywords"`
	JobDomains    keywordList `yaml:"job_domains"`
	SummaryMaxLen int         `yaml:"summary_max_len"`
}

type rawLimitsConfig struct {
	PerItemJobLinks int `yaml:"per_item_job_links"`
	PerRunJobLinks  int `yaml:"per_run_job_links"`
}

type rawIngestConfig struct {
	Type     string `yaml:"type"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"`
}

type rawClassifier struct {
	Heuristic *bool       `yaml:"heuristic"`
	AI        rawAIConfig `yaml:"ai"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	MinDelay string `yaml:"min_delay"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// keywordList accepts either a YAML sequence or a single string delimited by
// commas or newlines.
type keywordList []string

func (k *keywordList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*k = SplitList(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		var out []string
		for _, item := range items {
			out = append(out, SplitList(item)...)
		}
		*k = out
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list", node.Line)
	}
}

// SplitList splits s on commas and newlines, trimming blanks.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval := 15 * time.Minute
	if raw.PollingInterval != "" {
		interval, err = time.ParseDuration(raw.PollingInterval)
		if err != nil {
			return nil, fmt.Errorf("parse polling_interval %q: %w", raw.PollingInterval, err)
		}
	}

	ingestTimeout, err := durationOr(raw.Ingest.Timeout, 30*time.Second, "ingest.timeout")
	if err != nil {
		return nil, err
	}
	aiTimeout, err := durationOr(raw.Classifier.AI.Timeout, 30*time.Second, "classifier.ai.timeout")
	if err != nil {
		return nil, err
	}
	minDelay, err := durationOr(raw.RateLimit.MinDelay, time.Second, "rate_limit.min_delay")
	if err != nil {
		return nil, err
	}
	baseDelay, err := durationOr(raw.Retry.BaseDelay, time.Second, "retry.base_delay")
	if err != nil {
		return nil, err
	}

	maxRetries := 3
	if raw.Retry.MaxRetries != nil {
		maxRetries = *raw.Retry.MaxRetries
	}
	heuristic := true
	if raw.Classifier.Heuristic != nil {
		heuristic = *raw.Classifier.Heuristic
	}

	jobDomains := []string(raw.Feeds.JobDomains)
	if len(jobDomains) == 0 {
		jobDomains = DefaultJobDomains
	}

	cfg := &Config{
		PollingInterval: interval,
		Database: DatabaseConfig{
			Driver: stringOr(raw.Database.Driver, "sqlite"),
			DSN:    stringOr(raw.Database.DSN, "jobintake.db"),
		},
		Mailbox: MailboxConfig{
			Enabled:       raw.Mailbox.Enabled,
			Query:         stringOr(raw.Mailbox.Query, defaultMailboxQuery),
			MaxMessages:   intOr(raw.Mailbox.MaxMessages, 50),
			UserID:        stringOr(raw.Mailbox.UserID, "me"),
			ClientID:      raw.Mailbox.ClientID,
			ClientSecret:  raw.Mailbox.ClientSecret,
			TokenURL:      raw.Mailbox.TokenURL,
			EncryptionKey: raw.Mailbox.EncryptionKey,
		},
		Feeds: FeedsConfig{
			Enabled:       raw.Feeds.Enabled,
			URLs:          raw.Feeds.URLs,
			MaxItems:      intOr(raw.Feeds.MaxItems, 100),
			AllowKeywords: raw.Feeds.AllowKeywords,
			BlockKeywords: raw.Feeds.BlockKeywords,
			JobDomains:    jobDomains,
			SummaryMaxLen: intOr(raw.Feeds.SummaryMaxLen, 2000),
		},
		Limits: LimitsConfig{
			PerItemJobLinks: intOr(raw.Limits.PerItemJobLinks, 5),
			PerRunJobLinks:  intOr(raw.Limits.PerRunJobLinks, 50),
		},
		Ingest: IngestConfig{
			Type:     stringOr(raw.Ingest.Type, "log"),
			Endpoint: raw.Ingest.Endpoint,
			APIKey:   raw.Ingest.APIKey,
			Timeout:  ingestTimeout,
		},
		Classifier: ClassifierConfig{
			Heuristic: heuristic,
			AI: AIConfig{
				Enabled: raw.Classifier.AI.Enabled,
				BaseURL: stringOr(raw.Classifier.AI.BaseURL, defaultOpenAIBaseURL),
				Model:   raw.Classifier.AI.Model,
				APIKey:  raw.Classifier.AI.APIKey,
				Timeout: aiTimeout,
			},
		},
		Notification: raw.Notification,
		RateLimit:    RateLimitConfig{MinDelay: minDelay},
		Retry:        RetryConfig{MaxRetries: maxRetries, BaseDelay: baseDelay},
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.PollingInterval <= 0 {
		return &model.ConfigError{Field: "polling_interval", Reason: fmt.Sprintf("must be positive, got %v", cfg.PollingInterval)}
	}
	if !cfg.Mailbox.Enabled && !cfg.Feeds.Enabled {
		return &model.ConfigError{Field: "mailbox.enabled", Reason: "at least one of mailbox or feeds must be enabled"}
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return &model.ConfigError{Field: "database.driver", Reason: fmt.Sprintf("unknown driver %q", cfg.Database.Driver)}
	}

	if cfg.Mailbox.Enabled {
		if cfg.Mailbox.ClientID == "" || cfg.Mailbox.ClientSecret == "" {
			return &model.ConfigError{Field: "mailbox.client_id", Reason: "client_id and client_secret are required"}
		}
		if cfg.Mailbox.EncryptionKey == "" {
			return &model.ConfigError{Field: "mailbox.encryption_key", Reason: "required when mailbox is enabled"}
		}
		if cfg.Mailbox.MaxMessages <= 0 {
			return &model.ConfigError{Field: "mailbox.max_messages", Reason: "must be positive"}
		}
	}

	if cfg.Feeds.Enabled {
		if len(cfg.Feeds.URLs) == 0 {
			return &model.ConfigError{Field: "feeds.urls", Reason: "at least one feed URL is required"}
		}
		if cfg.Feeds.MaxItems <= 0 {
			return &model.ConfigError{Field: "feeds.max_items", Reason: "must be positive"}
		}
	}

	if cfg.Limits.PerItemJobLinks <= 0 {
		return &model.ConfigError{Field: "limits.per_item_job_links", Reason: "must be positive"}
	}
	if cfg.Limits.PerRunJobLinks <= 0 {
		return &model.ConfigError{Field: "limits.per_run_job_links", Reason: "must be positive"}
	}

	switch cfg.Ingest.Type {
	case "log":
	case "http":
		if cfg.Ingest.Endpoint == "" {
			return &model.ConfigError{Field: "ingest.endpoint", Reason: "required when type is \"http\""}
		}
	default:
		return &model.ConfigError{Field: "ingest.type", Reason: fmt.Sprintf("unknown type %q", cfg.Ingest.Type)}
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return &model.ConfigError{Field: "notification.webhook_url", Reason: "required when type is \"slack\""}
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return &model.ConfigError{Field: "notification.webhook_url", Reason: "must start with https://hooks.slack.com/"}
		}
	}

	if cfg.Classifier.AI.Enabled {
		if cfg.Classifier.AI.APIKey == "" {
			return &model.ConfigError{Field: "classifier.ai.api_key", Reason: "required when ai.enabled is true"}
		}
		if cfg.Classifier.AI.Model == "" {
			return &model.ConfigError{Field: "classifier.ai.model", Reason: "required when ai.enabled is true"}
		}
	}

	if cfg.Retry.MaxRetries < 0 {
		return &model.ConfigError{Field: "retry.max_retries", Reason: "must not be negative"}
	}

	return nil
}

func durationOr(s string, def time.Duration, field string) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d, nil
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intOr(n, def int) int {
	if n == 0 {
		return def
	}
	return n
}
