package cmd

import (
	"github.com/spf13/cobra"

	"nutrilabel/internal/logger"
	"nutrilabel/internal/mcpserver"
	"nutrilabel/internal/review"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the label tools as an MCP server over stdio",
	Long: `Expose the review pipeline to MCP clients over standard input and output.

Tools:
  analyze_label_text      review label text and return the structured report
  calculate_daily_values  percent daily values for a JSON nutrient map
  lookup_ingredient       reference data for a functional ingredient or nutrient

Logs are written to stderr so that stdout carries only protocol messages.`,
	Example: `  # Register with an MCP client
  {"command": "nutrilabel", "args": ["mcp"]}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	log := logger.WithComponent("mcp")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if cfg.LogOutput == "stdout" {
		logCfg := cfg.GetLoggerConfig()
		logCfg.Output = "stderr"
		if err := logger.Setup(logCfg); err != nil {
			return err
		}
		log = logger.WithComponent("mcp")
		log.Warn().Msg("LOG_OUTPUT=stdout is reserved for the MCP stream, logging to stderr")
	}

	reviews := review.NewService(nil, createSummarizer(cfg, log))
	log.Info().Str("version", version).Msg("Starting MCP server on stdio")
	return mcpserver.NewServer(reviews, version).ServeStdio()
}
