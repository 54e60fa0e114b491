package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"nutrilabel/internal/config"
	"nutrilabel/internal/ocr"
	"nutrilabel/internal/review"
	"nutrilabel/internal/storage"
	"nutrilabel/internal/summary"
	"nutrilabel/pkg/services"
)

// currentConfig returns the configuration loaded at startup, reloading it when
// startup failed so the command can report the actual problem.
func currentConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	appConfig = cfg
	return cfg, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// createOCRService builds the configured OCR provider, wrapped in the Redis
// text cache when REDIS_ADDR is set. The returned function releases the clients.
func createOCRService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.OCRService, func(), error) {
	hasCredentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""
	if !hasCredentials {
		log.Warn().Msg("No explicit Google Cloud credentials, relying on Application Default Credentials")
	}

	var (
		provider ocr.OCRService
		closers  []func() error
	)

	switch cfg.OCRProvider {
	case config.ProviderDocumentAI:
		svc, err := ocr.NewDocumentAIOCRService(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
		if err != nil {
			return nil, nil, ocrSetupError(err, log)
		}
		provider = svc
		closers = append(closers, svc.Close)
	default:
		svc, err := ocr.NewGoogleVisionOCRService(ctx)
		if err != nil {
			return nil, nil, ocrSetupError(err, log)
		}
		provider = svc
		closers = append(closers, svc.Close)
	}

	if cfg.RedisAddr != "" {
		cache, err := ocr.NewRedisCache(ctx, cfg.RedisAddr, cfg.OCRCacheTTL)
		if err != nil {
			log.Warn().
				Err(err).
				Str("redis_addr", cfg.RedisAddr).
				Msg("OCR cache unavailable, continuing without it")
		} else {
			provider = ocr.NewCachedService(provider, cache)
			closers = append(closers, cache.Close)
		}
	}

	log.Debug().
		Str("provider", cfg.OCRProvider).
		Bool("cached", cfg.RedisAddr != "").
		Msg("OCR service created successfully")

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Failed to close OCR client")
			}
		}
	}
	return provider, cleanup, nil
}

func ocrSetupError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Failed to create OCR service")
	switch {
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
			"2. Export GOOGLE_CREDENTIALS with inline JSON\n\n" +
			"3. Use Application Default Credentials (if gcloud is configured):\n" +
			"   gcloud auth application-default login")
	case errors.Is(err, ocr.ErrInvalidConfiguration):
		return fmt.Errorf("Document AI is selected (OCR_PROVIDER=documentai) but not configured: "+
			"set GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID: %w", err)
	default:
		return fmt.Errorf("failed to create OCR service: %w", err)
	}
}

// createSummarizer returns the OpenAI summary service, or nil when no API key
// is configured so that reviews use the local summary template.
func createSummarizer(cfg *config.Config, log zerolog.Logger) services.SummaryService {
	svc, err := summary.NewOpenAIService(summary.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		MaxRetries:  cfg.SummaryMaxRetries,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Summary generation disabled, using template summaries")
		return nil
	}
	return svc
}

func openHistory(cfg *config.Config, log zerolog.Logger) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.HistoryDBPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.HistoryDBPath).Msg("Failed to open review history")
		return nil, fmt.Errorf("failed to open review history %s: %w", cfg.HistoryDBPath, err)
	}
	return store, nil
}

// reviewDeps holds the collaborators of a review command.
type reviewDeps struct {
	service *review.Service
	ocr     ocr.OCRService
	history *storage.SQLiteStorage
	cleanup func()
}

// buildReviewService wires OCR (when withOCR), the summarizer and, when
// withHistory, the sqlite history into a review service.
func buildReviewService(ctx context.Context, cfg *config.Config, withOCR, withHistory bool, log zerolog.Logger) (*reviewDeps, error) {
	deps := &reviewDeps{cleanup: func() {}}
	var cleanups []func()

	if withOCR {
		provider, cleanup, err := createOCRService(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		deps.ocr = provider
		cleanups = append(cleanups, cleanup)
	}

	var opts []review.Option
	if withHistory {
		store, err := openHistory(cfg, log)
		if err != nil {
			for _, c := range cleanups {
				c()
			}
			return nil, err
		}
		deps.history = store
		opts = append(opts, review.WithHistory(store))
		cleanups = append(cleanups, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close review history")
			}
		})
	}

	deps.service = review.NewService(deps.ocr, createSummarizer(cfg, log), opts...)
	deps.cleanup = func() {
		for _, c := range cleanups {
			c()
		}
	}
	return deps, nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ocr.ErrTimeout):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled), errors.Is(err, ocr.ErrContextCanceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrDocumentTooLarge):
		return fmt.Errorf("file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages for synchronous processing. Try splitting into smaller files")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file. Use a JPEG, PNG, BMP, GIF, TIFF image or a PDF: %w", err)
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document. Check that the label is in focus and not cropped")
	case errors.Is(err, ocr.ErrAuthentication), errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n" +
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n" +
			"2. Or set GOOGLE_CREDENTIALS with inline JSON\n" +
			"3. Ensure the service account may call the Vision or Document AI API\n\n" +
			"Original error: %v", err)
	case errors.Is(err, ocr.ErrRateLimited):
		return fmt.Errorf("OCR quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, review.ErrNoOCR):
		return fmt.Errorf("no OCR provider is configured")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues or service unavailability: %w", err)
	default:
		return fmt.Errorf("processing failed: %w", err)
	}
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte, log zerolog.Logger) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", path).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", path).
		Int("bytes", len(data)).
		Msg("Results written to file")
	return nil
}
