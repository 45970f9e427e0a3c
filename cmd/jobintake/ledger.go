package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobintake/internal/inspect"
	"github.com/amishk599/jobintake/internal/model"
)

var ledgerLimit int

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Browse recently processed mailbox messages",
	Long:  "Opens a split-pane view of the idempotency log: which messages were processed and which links and job keys they produced.",
	RunE:  runLedger,
}

func init() {
	ledgerCmd.Flags().IntVarP(&ledgerLimit, "limit", "n", 200, "number of records to load")
	rootCmd.AddCommand(ledgerCmd)
}

func runLedger(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	records, err := inspect.RunLoader("Loading ledger", 30*time.Second, func(ctx context.Context) ([]model.IdempotencyRecord, error) {
		return db.RecentRecords(ctx, ledgerLimit)
	})
	if err != nil {
		logger.Error("failed to load ledger", "error", err)
		os.Exit(1)
	}

	return inspect.RunLedger(records)
}
