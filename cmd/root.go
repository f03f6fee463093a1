// Package cmd implements the muniwatch CLI using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/muniwatch/internal/config"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "muniwatch",
	Short: "Watch municipal web sites for early project signals",
	Long: `muniwatch crawls municipal web sites, extracts the text of their
deliberations, bulletins and news (OCR included), and ranks the documents
that match a campaign's keywords and weak signals.

Usage:
  muniwatch crawl --campaign campaign.json [site-url...] [flags]
  muniwatch score --campaign campaign.json <file-or-url>
  muniwatch campaign init|validate
  muniwatch cache show|flush`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.InitLogger(loaded.Log); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
