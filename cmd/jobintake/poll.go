package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobintake/internal/scheduler"
)

var pollDryRun bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run a single poll and print its summary",
}

var pollMailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Poll the mailbox once",
	Long:  "Poll the mailbox once and print the run summary as JSON. With --dry-run nothing is logged, the cursor is not moved, and links are only logged.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPoll(cmd, func(p *pipeline) (scheduler.Poller, error) { return p.mailPoller() })
	},
}

var pollFeedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Poll the configured feeds once",
	Long:  "Poll every configured feed once and print the run summary as JSON. With --dry-run links are only logged.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPoll(cmd, func(p *pipeline) (scheduler.Poller, error) { return p.feedPoller() })
	},
}

func init() {
	pollCmd.PersistentFlags().BoolVar(&pollDryRun, "dry-run", false, "do not write to the job store, idempotency log or cursor")
	pollCmd.AddCommand(pollMailCmd, pollFeedsCmd)
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, build func(p *pipeline) (scheduler.Poller, error)) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if pollDryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted")
	}
	p := &pipeline{cfg: cfg, db: db, httpClient: &http.Client{Timeout: 30 * time.Second}, dryRun: pollDryRun, logger: logger}

	poller, err := build(p)
	if err != nil {
		logger.Error("failed to set up poller", "error", err)
		os.Exit(1)
	}

	summary, err := poller.Poll(ctx)
	if summary != nil {
		out, mErr := json.MarshalIndent(summary, "", "  ")
		if mErr != nil {
			return fmt.Errorf("marshal summary: %w", mErr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	if err != nil {
		logger.Error("poll failed", "source", poller.Source(), "error", err)
		os.Exit(1)
	}
	return nil
}
