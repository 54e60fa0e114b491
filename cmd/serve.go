package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"nutrilabel/internal/logger"
	"nutrilabel/internal/ocr"
	"nutrilabel/internal/review"
	"nutrilabel/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review pipeline over HTTP",
	Long: `Start the HTTP API. Endpoints:

  GET  /healthz
  POST /api/ocr          multipart "file"
  POST /api/review       multipart "file", optional product, batch, no_summary, save
  POST /api/analyze      JSON {"text", "product", "batch", "save"}
  POST /api/summarize    JSON summary request
  POST /api/dv           JSON {"nutrients": {...}}
  GET  /api/reviews      history listing (product, rating, since, limit)
  GET  /api/reviews/:id  stored report

The server keeps running without OCR when Google Cloud is not configured; the
upload endpoints then answer with an error. The review history is kept in
HISTORY_DB_PATH unless --no-history is given.`,
	Example: `  # Listen on HTTP_PORT (default 8080)
  nutrilabel serve

  # Allow a browser front end
  CORS_ALLOWED_ORIGINS=http://localhost:3000 nutrilabel serve --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Port to listen on (default: HTTP_PORT)")
	serveCmd.Flags().Bool("no-history", false, "Disable the review history endpoints")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("serve")

	port, _ := cmd.Flags().GetString("port")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.HTTPPort = port
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ocrService ocr.OCRService
	provider, closeOCR, err := createOCRService(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("OCR unavailable, upload endpoints disabled")
	} else {
		ocrService = provider
		defer closeOCR()
	}

	handlerCfg := server.HandlerConfig{
		OCR:        ocrService,
		Summarizer: createSummarizer(cfg, log),
	}

	var opts []review.Option
	if !noHistory {
		store, err := openHistory(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close review history")
			}
		}()
		handlerCfg.History = store
		opts = append(opts, review.WithHistory(store))
	}
	handlerCfg.Reviews = review.NewService(handlerCfg.OCR, handlerCfg.Summarizer, opts...)

	router := server.NewRouter(server.RouterConfig{
		Handler:        server.NewHandler(handlerCfg),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	log.Info().
		Str("addr", cfg.HTTPAddr()).
		Bool("ocr", ocrService != nil).
		Bool("history", !noHistory).
		Strs("cors_origins", cfg.CORSAllowedOrigins).
		Msg("Starting HTTP API")

	return server.New(cfg.HTTPAddr(), router).Run(ctx)
}
