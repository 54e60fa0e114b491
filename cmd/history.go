package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"nutrilabel/internal/logger"
	"nutrilabel/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved label reviews",
	Long: `List and show reviews saved with --save. The history lives in the sqlite
database at HISTORY_DB_PATH.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reviews, newest first",
	Example: `  # Dangerous ratings since March
  nutrilabel history list --rating dangerous --since 2026-03-01

  # Reviews of one product as JSON
  nutrilabel history list --product 비타민 --json`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a saved review",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().String("product", "", "Filter by product name (substring)")
	historyListCmd.Flags().String("rating", "", "Filter by overall rating")
	historyListCmd.Flags().String("since", "", "Only reviews created at or after this date (YYYY-MM-DD or RFC3339)")
	historyListCmd.Flags().Int("limit", storage.DefaultListLimit, "Maximum number of reviews")
	historyListCmd.Flags().Bool("json", false, "Output as JSON")

	historyShowCmd.Flags().Bool("json", false, "Output the report as JSON")
	historyShowCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("history")

	product, _ := cmd.Flags().GetString("product")
	rating, _ := cmd.Flags().GetString("rating")
	sinceRaw, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	since, err := parseDateFlag(sinceRaw)
	if err != nil {
		return err
	}

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	store, err := openHistory(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	reviews, err := store.ListReports(context.Background(), storage.ListFilter{
		Product: product,
		Rating:  rating,
		Since:   since,
		Limit:   limit,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(reviews, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		return writeOutput("", append(data, '\n'), log)
	}

	if len(reviews) == 0 {
		fmt.Println("No saved reviews.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPRODUCT\tBATCH\tRATING\tSCORE\tISSUES")
	for _, r := range reviews {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Product,
			r.Batch,
			r.Rating,
			r.ComplianceScore,
			r.IssueCount,
		)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("history")

	jsonOutput, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	store, err := openHistory(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.GetReport(context.Background(), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no saved review with id %s", args[0])
	}
	if err != nil {
		return err
	}

	data, err := formatReport(report, jsonOutput)
	if err != nil {
		return err
	}
	return writeOutput(outputPath, data, log)
}

// parseDateFlag accepts an RFC3339 timestamp or a local calendar date.
func parseDateFlag(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: use YYYY-MM-DD or RFC3339", raw)
	}
	return t, nil
}
