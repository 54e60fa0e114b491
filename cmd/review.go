package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nutrilabel/internal/logger"
	"nutrilabel/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Review a nutrition label image or PDF",
	Long: `Run the full review of a label: OCR, nutrient extraction, validation,
percent daily values, functional ingredient compliance and a narrative
summary.

The summary is generated with OpenAI when OPENAI_API_KEY is set and falls back
to a local template otherwise or on failure. With --save the report is stored
in the review history (HISTORY_DB_PATH).`,
	Example: `  # Review a label photo
  nutrilabel review label.jpg

  # JSON report with product and batch labels, saved to history
  nutrilabel review label.pdf --json --product "비타민C 1000" --batch 2026-03 --save`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	addReviewFlags(reviewCmd)
}

// addReviewFlags registers the flags shared by review and analyze.
func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().Bool("json", false, "Output the report as JSON")
	cmd.Flags().String("product", "", "Product name (default: file name)")
	cmd.Flags().String("batch", "", "Batch label (default: today's date)")
	cmd.Flags().Bool("no-summary", false, "Use the local summary template instead of OpenAI")
	cmd.Flags().Bool("save", false, "Save the report to the review history")
	cmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func reviewOptions(cmd *cobra.Command) review.Options {
	product, _ := cmd.Flags().GetString("product")
	batch, _ := cmd.Flags().GetString("batch")
	noSummary, _ := cmd.Flags().GetBool("no-summary")
	save, _ := cmd.Flags().GetBool("save")
	return review.Options{
		Product:     product,
		Batch:       batch,
		SkipSummary: noSummary,
		Save:        save,
	}
}

func runReview(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("review")

	path := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	opts := reviewOptions(cmd)

	log.Info().
		Str("file", path).
		Str("product", opts.Product).
		Bool("save", opts.Save).
		Bool("no_summary", opts.SkipSummary).
		Msg("Starting label review")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if _, err := validateLabelFile(path, log); err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	deps, err := buildReviewService(ctx, cfg, true, opts.Save, log)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	report, err := deps.service.ReviewDocument(ctx, path, f, opts)
	if err != nil {
		return handleOCRError(err, log)
	}

	data, err := formatReport(report, jsonOutput)
	if err != nil {
		return err
	}
	return writeOutput(outputPath, data, log)
}
