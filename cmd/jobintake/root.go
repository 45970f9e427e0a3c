package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobintake/internal/classify"
	"github.com/amishk599/jobintake/internal/config"
	"github.com/amishk599/jobintake/internal/feed"
	"github.com/amishk599/jobintake/internal/ingest"
	"github.com/amishk599/jobintake/internal/jobboard"
	"github.com/amishk599/jobintake/internal/mailbox"
	"github.com/amishk599/jobintake/internal/model"
	"github.com/amishk599/jobintake/internal/notifier"
	"github.com/amishk599/jobintake/internal/poller"
	"github.com/amishk599/jobintake/internal/ratelimit"
	"github.com/amishk599/jobintake/internal/retry"
	"github.com/amishk599/jobintake/internal/store"
	"github.com/amishk599/jobintake/internal/vault"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobintake",
	Short: "Pull job links from your inbox and feeds into your job tracker",
	Long: "jobintake polls a mailbox and a list of RSS/Atom feeds for job-posting links,\n" +
		"canonicalizes and de-duplicates them, and hands them to a job-tracking store.",
	// With no subcommand, run the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBINTAKE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBINTAKE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBINTAKE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func openStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	return store.Open(ctx, store.Dialect(cfg.Database.Driver), cfg.Database.DSN)
}

func setupReporter(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Reporter {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack reporter")
		return notifier.NewSlackReporter(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogReporter(logger)
	}
}

func setupIngester(cfg *config.Config, dryRun bool, logger *slog.Logger) model.Ingester {
	if dryRun || cfg.Ingest.Type != "http" {
		return ingest.NewLogIngester(logger)
	}
	return ingest.NewHTTPIngester(cfg.Ingest.Endpoint, cfg.Ingest.APIKey, &http.Client{Timeout: cfg.Ingest.Timeout})
}

// setupClassifier returns nil when no message classifier is configured.
func setupClassifier(cfg *config.Config, logger *slog.Logger) model.MessageClassifier {
	var chain []model.MessageClassifier
	if cfg.Classifier.Heuristic {
		chain = append(chain, classify.NewHeuristic())
	}
	if ai := cfg.Classifier.AI; ai.Enabled {
		provider := classify.NewOpenAIProvider(ai.BaseURL, ai.APIKey, ai.Model, &http.Client{Timeout: ai.Timeout})
		chain = append(chain, classify.NewLLM(provider, classify.MessageCheckTemplate))
		logger.Info("ai message classifier enabled", "model", ai.Model)
	}
	if len(chain) == 0 {
		return nil
	}
	return classify.NewChain(logger, chain...)
}

func setupVault(cfg *config.Config, vs model.VaultStore, httpClient *http.Client, logger *slog.Logger) (*vault.Vault, error) {
	sealer, err := vault.NewSealer(cfg.Mailbox.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return vault.New(vs, sealer, vault.OAuthConfig{
		ClientID:     cfg.Mailbox.ClientID,
		ClientSecret: cfg.Mailbox.ClientSecret,
		TokenURL:     cfg.Mailbox.TokenURL,
	}, httpClient, logger)
}

// pipeline holds the state shared by the pollers of one process.
type pipeline struct {
	cfg        *config.Config
	db         *store.SQLStore
	httpClient *http.Client
	dryRun     bool
	logger     *slog.Logger
}

func (p *pipeline) mailPoller() (*poller.MailPoller, error) {
	v, err := setupVault(p.cfg, p.db, p.httpClient, p.logger)
	if err != nil {
		return nil, err
	}

	var idem model.IdempotencyLog = p.db
	var cursor model.CursorStore = p.db
	if p.dryRun {
		nop := store.NewNopStore()
		idem, cursor = nop, nop
	}

	return poller.NewMailPoller(poller.MailConfig{
		Query:       p.cfg.Mailbox.Query,
		MaxMessages: p.cfg.Mailbox.MaxMessages,
		PerItemCap:  p.cfg.Limits.PerItemJobLinks,
		PerRunCap:   p.cfg.Limits.PerRunJobLinks,
	}, poller.MailDeps{
		Tokens:     v,
		Dialer:     mailbox.NewGmailDialer(p.cfg.Mailbox.UserID, "", p.httpClient, p.logger),
		Log:        idem,
		Cursor:     cursor,
		Normalizer: jobboard.NewNormalizer(),
		Classifier: setupClassifier(p.cfg, p.logger),
		Ingester:   setupIngester(p.cfg, p.dryRun, p.logger),
	}, p.logger)
}

func (p *pipeline) feedPoller() (*poller.FeedPoller, error) {
	// Retries go through the limiter so a retried fetch still waits its turn.
	var fetcher model.FeedFetcher = feed.NewHTTPFetcher(p.httpClient)
	fetcher = ratelimit.NewLimitedFetcher(fetcher, ratelimit.NewHostLimiter(p.cfg.RateLimit.MinDelay))
	fetcher = retry.NewFetcher(fetcher, p.cfg.Retry.MaxRetries, p.cfg.Retry.BaseDelay, p.logger)

	fc := p.cfg.Feeds
	return poller.NewFeedPoller(poller.FeedConfig{
		URLs:          fc.URLs,
		MaxItems:      fc.MaxItems,
		PerItemCap:    p.cfg.Limits.PerItemJobLinks,
		PerRunCap:     p.cfg.Limits.PerRunJobLinks,
		SummaryMaxLen: fc.SummaryMaxLen,
		JobDomains:    fc.JobDomains,
		AllowKeywords: fc.AllowKeywords,
		BlockKeywords: fc.BlockKeywords,
	}, poller.FeedDeps{
		Fetcher:    fetcher,
		Normalizer: jobboard.NewNormalizer(),
		Ingester:   setupIngester(p.cfg, p.dryRun, p.logger),
	}, p.logger)
}
