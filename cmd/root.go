package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nutrilabel/internal/config"
	"nutrilabel/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute; nil when the configuration failed to load.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "nutrilabel",
	Short: "Review Korean nutrition facts labels",
	Long: `nutrilabel reads nutrition facts labels from images or PDFs, extracts the
declared nutrients, computes percent daily values and checks functional
ingredients against their approved daily intake ranges.

Reviews can be run one label at a time, in batches from a folder or a
Cloud Storage bucket, over HTTP or as MCP tools.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with the configuration loaded at startup.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
