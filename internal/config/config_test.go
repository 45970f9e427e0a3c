package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobintake/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("TEST_CLIENT_SECRET", "s3cret")
	path := writeConfig(t, `
polling_interval: 5m
mailbox:
  enabled: true
  query: "label:jobs newer_than:2d"
  client_id: client
  client_secret: ${TEST_CLIENT_SECRET}
  encryption_key: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
feeds:
  enabled: true
  urls:
    - https://example.com/jobs.rss
  allow_keywords: "golang, backend"
  block_keywords:
    - senior staff
limits:
  per_item_job_links: 3
  per_run_job_links: 20
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollingInterval != 5*time.Minute {
		t.Errorf("PollingInterval = %v, want 5m", cfg.PollingInterval)
	}
	if cfg.Mailbox.ClientSecret != "s3cret" {
		t.Errorf("ClientSecret = %q, want env-expanded value", cfg.Mailbox.ClientSecret)
	}
	if cfg.Mailbox.Query != "label:jobs newer_than:2d" {
		t.Errorf("Query = %q", cfg.Mailbox.Query)
	}
	if cfg.Mailbox.MaxMessages != 50 {
		t.Errorf("MaxMessages = %d, want default 50", cfg.Mailbox.MaxMessages)
	}
	if len(cfg.Feeds.AllowKeywords) != 2 || cfg.Feeds.AllowKeywords[1] != "backend" {
		t.Errorf("AllowKeywords = %v", cfg.Feeds.AllowKeywords)
	}
	if len(cfg.Feeds.BlockKeywords) != 1 || cfg.Feeds.BlockKeywords[0] != "senior staff" {
		t.Errorf("BlockKeywords = %v", cfg.Feeds.BlockKeywords)
	}
	if len(cfg.Feeds.JobDomains) != len(DefaultJobDomains) {
		t.Errorf("JobDomains = %v, want defaults", cfg.Feeds.JobDomains)
	}
	if cfg.Feeds.SummaryMaxLen != 2000 || cfg.Feeds.MaxItems != 100 {
		t.Errorf("feed defaults = %d/%d", cfg.Feeds.SummaryMaxLen, cfg.Feeds.MaxItems)
	}
	if cfg.Limits.PerItemJobLinks != 3 || cfg.Limits.PerRunJobLinks != 20 {
		t.Errorf("Limits = %+v", cfg.Limits)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Ingest.Type != "log" || cfg.Notification.Type != "log" {
		t.Errorf("defaults: db=%q ingest=%q notify=%q", cfg.Database.Driver, cfg.Ingest.Type, cfg.Notification.Type)
	}
	if !cfg.Classifier.Heuristic {
		t.Error("Heuristic should default to true")
	}
	if cfg.Retry.MaxRetries != 3 || cfg.RateLimit.MinDelay != time.Second {
		t.Errorf("Retry = %+v, RateLimit = %+v", cfg.Retry, cfg.RateLimit)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "polling_interval: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "nothing enabled",
			yaml:  "polling_interval: 5m\n",
			field: "mailbox.enabled",
		},
		{
			name:  "feeds without urls",
			yaml:  "feeds:\n  enabled: true\n",
			field: "feeds.urls",
		},
		{
			name:  "mailbox without key",
			yaml:  "mailbox:\n  enabled: true\n  client_id: a\n  client_secret: b\n",
			field: "mailbox.encryption_key",
		},
		{
			name:  "http ingest without endpoint",
			yaml:  "feeds:\n  enabled: true\n  urls: [https://x.test/rss]\ningest:\n  type: http\n",
			field: "ingest.endpoint",
		},
		{
			name:  "negative per-run cap",
			yaml:  "feeds:\n  enabled: true\n  urls: [https://x.test/rss]\nlimits:\n  per_run_job_links: -1\n",
			field: "limits.per_run_job_links",
		},
		{
			name:  "bad slack webhook",
			yaml:  "feeds:\n  enabled: true\n  urls: [https://x.test/rss]\nnotification:\n  type: slack\n  webhook_url: https://example.com/hook\n",
			field: "notification.webhook_url",
		},
		{
			name:  "unknown driver",
			yaml:  "feeds:\n  enabled: true\n  urls: [https://x.test/rss]\ndatabase:\n  driver: mysql\n",
			field: "database.driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			var cfgErr *model.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Load error = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" go ,rust\n\npython,, ")
	want := []string{"go", "rust", "python"}
	if len(got) != len(want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
