package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobintake/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the polling daemon",
	Long:  "Start the scheduler daemon; blocks until SIGINT/SIGTERM. Run at most one daemon per database.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"interval", cfg.PollingInterval.String(),
		"mailbox", cfg.Mailbox.Enabled,
		"feeds", len(cfg.Feeds.URLs),
		"per_item_cap", cfg.Limits.PerItemJobLinks,
		"per_run_cap", cfg.Limits.PerRunJobLinks,
		"ingest", cfg.Ingest.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	p := &pipeline{cfg: cfg, db: db, httpClient: httpClient, logger: logger}

	var pollers []scheduler.Poller
	if cfg.Mailbox.Enabled {
		mp, err := p.mailPoller()
		if err != nil {
			logger.Error("failed to set up mailbox poller", "error", err)
			os.Exit(1)
		}
		pollers = append(pollers, mp)
	}
	if cfg.Feeds.Enabled {
		fp, err := p.feedPoller()
		if err != nil {
			logger.Error("failed to set up feed poller", "error", err)
			os.Exit(1)
		}
		pollers = append(pollers, fp)
	}

	sched := scheduler.NewScheduler(pollers, setupReporter(cfg, httpClient, logger), cfg.PollingInterval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
