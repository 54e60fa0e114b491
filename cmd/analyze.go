package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nutrilabel/internal/logger"
)

// maxTextBytes bounds the label text read by analyze.
const maxTextBytes = 1 << 20

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text-file]",
	Short: "Review label text that was already extracted",
	Long: `Run the review pipeline on label text without OCR. The text is read from
the given file, or from standard input when no file is given.`,
	Example: `  # Review text saved by the ocr command
  nutrilabel ocr label.jpg -o label.txt
  nutrilabel analyze label.txt

  # Pipe text in
  pbpaste | nutrilabel analyze --json --no-summary`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addReviewFlags(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("analyze")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	opts := reviewOptions(cmd)

	var (
		in   io.Reader = cmd.InOrStdin()
		name           = "stdin"
	)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open text file: %w", err)
		}
		defer f.Close()
		in = f
		name = args[0]
		if opts.Product == "" {
			opts.Product = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		}
	}

	text, err := io.ReadAll(io.LimitReader(in, maxTextBytes))
	if err != nil {
		return fmt.Errorf("failed to read label text: %w", err)
	}
	if strings.TrimSpace(string(text)) == "" {
		return fmt.Errorf("no label text in %s", name)
	}

	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	deps, err := buildReviewService(ctx, cfg, false, opts.Save, log)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	log.Info().
		Str("source", name).
		Int("bytes", len(text)).
		Msg("Analyzing label text")

	report, err := deps.service.ReviewText(ctx, string(text), opts)
	if err != nil {
		return err
	}

	data, err := formatReport(report, jsonOutput)
	if err != nil {
		return err
	}
	return writeOutput(outputPath, data, log)
}
