package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envOnly    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "orderbackup",
		Short:         "Order backup sync engine",
		Long:          "Backs up marketplace orders per source token with revision tracking, deduplication and data quality monitoring.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := os.Getenv("ORDERBACKUP_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	envOnly := false
	if raw := os.Getenv("ORDERBACKUP_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultPath, "path to the YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.envOnly, "env-only", envOnly, "read configuration from ORDERBACKUP_* variables only")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newRetryFailedCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
