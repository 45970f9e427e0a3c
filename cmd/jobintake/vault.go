package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var refreshToken string

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the mailbox token vault",
}

var vaultConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Store a mailbox refresh token",
	Long: "Encrypts a refresh token obtained from the OAuth consent flow and stores it in the vault.\n" +
		"The token may also be passed in the JOBINTAKE_REFRESH_TOKEN environment variable.",
	RunE: runVaultConnect,
}

var vaultStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the mailbox is connected",
	RunE:  runVaultStatus,
}

func init() {
	vaultConnectCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")
	vaultCmd.AddCommand(vaultConnectCmd, vaultStatusCmd)
	rootCmd.AddCommand(vaultCmd)
}

func runVaultConnect(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	token := refreshToken
	if token == "" {
		token = os.Getenv("JOBINTAKE_REFRESH_TOKEN")
	}
	if token == "" {
		logger.Error("no refresh token given; use --refresh-token or JOBINTAKE_REFRESH_TOKEN")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	v, err := setupVault(cfg, db, &http.Client{Timeout: 30 * time.Second}, logger)
	if err != nil {
		logger.Error("failed to set up vault", "error", err)
		os.Exit(1)
	}
	if err := v.Connect(ctx, token); err != nil {
		logger.Error("failed to store refresh token", "error", err)
		os.Exit(1)
	}

	// Prove the token works before reporting success.
	if _, err := v.AccessToken(ctx); err != nil {
		logger.Error("refresh token stored but exchange failed", "error", err)
		os.Exit(1)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "mailbox connected")
	return nil
}

func runVaultStatus(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	v, err := setupVault(cfg, db, nil, logger)
	if err != nil {
		logger.Error("failed to set up vault", "error", err)
		os.Exit(1)
	}
	st, err := v.Status(ctx)
	if err != nil {
		logger.Error("failed to read vault", "error", err)
		os.Exit(1)
	}

	out := cmd.OutOrStdout()
	switch {
	case !st.Connected:
		fmt.Fprintln(out, "not connected")
	case st.Corrupt:
		fmt.Fprintln(out, "corrupted: stored token cannot be decrypted with the configured key")
	default:
		expiry := "no cached access token"
		if !st.ExpiresAt.IsZero() {
			expiry = "access token expires " + st.ExpiresAt.Local().Format(time.RFC1123)
		}
		fmt.Fprintf(out, "connected (updated %s, %s)\n", st.UpdatedAt.Local().Format(time.RFC1123), expiry)
	}
	return nil
}
