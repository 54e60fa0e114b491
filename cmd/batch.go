package cmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nutrilabel/internal/compliance"
	"nutrilabel/internal/logger"
	"nutrilabel/internal/review"
	"nutrilabel/internal/sheets"
	"nutrilabel/internal/source"
	"nutrilabel/internal/units"
)

const (
	statusSuccess = "success"
	statusWarning = "warning"
	statusError   = "error"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder | gs://bucket/prefix]",
	Short: "Review every label in a folder or bucket and write the results to Google Sheets",
	Long: `Review all label images and PDFs in a local folder (recursively) or under a
Cloud Storage prefix, using a pool of parallel workers, and append one row per
label to a Google Sheet.

Without an argument the bucket from GCS_SOURCE_BUCKET is used.

A label is reported as a warning when its record failed validation or its
functional ingredient rating is poor or dangerous.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
  GOOGLE_SHEET_URL - Google Sheets URL to write results (unless --dry-run)

Optional environment variables:
  GOOGLE_SHEET_WORKSHEET - Worksheet name (default: Reviews)
  BATCH_WORKERS - Number of parallel workers (default: 12)
  OPENAI_API_KEY - Enables generated summaries`,
	Example: `  # Review a folder of label photos
  nutrilabel batch ./labels

  # Review a bucket prefix without touching the sheet
  nutrilabel batch gs://label-scans/2026/march --dry-run

  # Save every report to history and as JSON files
  nutrilabel batch ./labels --save --output-dir ./reports`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

// WorkerJob represents a label processing job
type WorkerJob struct {
	Name  string
	Index int
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Bool("dry-run", false, "Review files but don't write to Google Sheet")
	batchCmd.Flags().String("sheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	batchCmd.Flags().String("batch", "", "Batch label for every report (default: today's date)")
	batchCmd.Flags().Bool("save", false, "Save every report to the review history")
	batchCmd.Flags().Bool("no-summary", false, "Use the local summary template instead of OpenAI")
	batchCmd.Flags().String("output-dir", "", "Also write each report as JSON into this folder")
	batchCmd.Flags().Int("timeout", 30, "Overall timeout in minutes")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	sheetName, _ := cmd.Flags().GetString("sheet")
	batchLabel, _ := cmd.Flags().GetString("batch")
	save, _ := cmd.Flags().GetBool("save")
	noSummary, _ := cmd.Flags().GetBool("no-summary")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	timeoutMins, _ := cmd.Flags().GetInt("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	location := ""
	if len(args) == 1 {
		location = args[0]
	} else if cfg.GCSSourceBucket != "" {
		location = "gs://" + cfg.GCSSourceBucket
	} else {
		return fmt.Errorf("no input: pass a folder or gs:// URL, or set GCS_SOURCE_BUCKET")
	}
	if sheetName == "" {
		sheetName = cfg.GoogleSheetWorksheet
	}
	if !dryRun && cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required (or use --dry-run)")
	}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	log.Info().
		Str("location", location).
		Str("sheet", sheetName).
		Bool("dry_run", dryRun).
		Bool("save", save).
		Msg("Starting batch review")

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                         BATCH LABEL REVIEW")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Source: %s\n", location)
	if dryRun {
		fmt.Println("Mode: dry run (Google Sheet is not updated)")
	}
	fmt.Println()

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutMins)*time.Minute, log)
	defer cancel()

	src, closeSource, err := source.Open(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", location, err)
	}
	defer func() {
		if err := closeSource(); err != nil {
			log.Warn().Err(err).Msg("Failed to close source")
		}
	}()

	files, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list label files: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No label files found.")
		return nil
	}

	deps, err := buildReviewService(ctx, cfg, true, save, log)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	opts := review.Options{Batch: batchLabel, SkipSummary: noSummary, Save: save}
	numWorkers := cfg.BatchWorkers
	fmt.Printf("Reviewing %d files with %d parallel workers...\n\n", len(files), numWorkers)

	results := processLabelsInParallel(ctx, src, files, deps.service, opts, numWorkers, outputDir, log, verbose)
	counts := countStatuses(results)

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULT")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Success: %d\n", counts[statusSuccess])
	if counts[statusWarning] > 0 {
		fmt.Printf("Warnings: %d\n", counts[statusWarning])
	}
	if counts[statusError] > 0 {
		fmt.Printf("Errors: %d\n", counts[statusError])
	}
	fmt.Println()

	if !dryRun {
		fmt.Println("Writing results to Google Sheet...")

		sheetsService, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := sheetsService.WriteBatchResults(ctx, results, sheetName); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}

		fmt.Printf("Sheet: %s\n", sheetName)
		fmt.Printf("Rows added: %d\n", len(results))
		fmt.Printf("URL: %s\n", cfg.GoogleSheetURL)
	}

	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("total", len(files)).
		Int("success", counts[statusSuccess]).
		Int("warnings", counts[statusWarning]).
		Int("errors", counts[statusError]).
		Msg("Batch review completed")

	return nil
}

// processLabelsInParallel reviews files with a worker pool, keeping results in
// input order.
func processLabelsInParallel(ctx context.Context, src source.Source, files []string, svc *review.Service, opts review.Options, numWorkers int, outputDir string, log zerolog.Logger, verbose bool) []sheets.BatchResult {
	if numWorkers < 1 {
		numWorkers = 1
	}

	jobs := make(chan WorkerJob, len(files))
	results := make([]sheets.BatchResult, len(files))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", job.Name).
					Int("index", job.Index+1).
					Msg("Worker processing label")

				result := processSingleLabel(ctx, src, job.Name, svc, opts, outputDir, log)
				results[job.Index] = result

				mu.Lock()
				processedCount++
				fmt.Printf("[%d/%d] %s - %s", processedCount, len(files), result.Filename, getStatusEmoji(result.Status))
				switch {
				case result.Error != nil:
					fmt.Printf(" (%s)", result.Error.Error())
				case result.Report != nil && result.Report.Compliance != nil:
					fmt.Printf(" (%s, %d)", result.Report.Compliance.OverallRating, result.Report.Compliance.ComplianceScore)
				}
				if verbose && result.Report != nil {
					for _, msg := range result.Report.ValidationErrors {
						fmt.Printf("\n    - %s", msg)
					}
				}
				fmt.Println()
				mu.Unlock()
			}
		}(w)
	}

	for i, name := range files {
		jobs <- WorkerJob{Name: name, Index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

func processSingleLabel(ctx context.Context, src source.Source, name string, svc *review.Service, opts review.Options, outputDir string, log zerolog.Logger) sheets.BatchResult {
	result := sheets.BatchResult{Filename: baseName(name)}

	rc, err := src.Open(ctx, name)
	if err != nil {
		result.Error = err
		result.Status = statusError
		return result
	}
	defer rc.Close()

	report, err := svc.ReviewDocument(ctx, name, rc, opts)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Label review failed")
		result.Error = err
		result.Status = statusError
		return result
	}

	result.Report = report
	result.Status = reportStatus(report)

	if outputDir != "" {
		if err := writeReportFile(outputDir, report); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Failed to write report file")
		}
	}
	return result
}

// reportStatus is a warning when the record failed validation or the
// ingredient rating is poor or worse.
func reportStatus(r *review.Report) string {
	if len(r.ValidationErrors) > 0 {
		return statusWarning
	}
	if r.Compliance != nil && r.Compliance.OverallRating.Rank() <= compliance.RatingPoor.Rank() {
		return statusWarning
	}
	return statusSuccess
}

func writeReportFile(dir string, report *review.Report) error {
	data, err := formatReport(report, true)
	if err != nil {
		return err
	}
	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := units.SanitizeFilename(fmt.Sprintf("%s_%s.json", report.Meta.Product, id))
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func countStatuses(results []sheets.BatchResult) map[string]int {
	counts := make(map[string]int, 3)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// baseName works for both local paths and object names.
func baseName(name string) string {
	return path.Base(filepath.ToSlash(name))
}

// getStatusEmoji returns an emoji for the processing status
func getStatusEmoji(status string) string {
	switch status {
	case statusSuccess:
		return "✅"
	case statusWarning:
		return "⚠️"
	case statusError:
		return "❌"
	default:
		return "❓"
	}
}
