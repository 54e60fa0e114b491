// Package server exposes the label review pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nutrilabel/internal/logger"
)

const shutdownTimeout = 30 * time.Second

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Handler        *Handler
	AllowedOrigins []string
}

// NewRouter builds the gin engine with middleware and all API routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORS(cfg.AllowedOrigins))
	router.Use(RequestID())
	router.Use(RequestLogger())

	h := cfg.Handler
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	{
		api.POST("/ocr", h.OCR)
		api.POST("/review", h.Review)
		api.POST("/analyze", h.Analyze)
		api.POST("/summarize", h.Summarize)
		api.POST("/dv", h.DailyValues)
		api.GET("/reviews", h.ListReviews)
		api.GET("/reviews/:id", h.GetReview)
	}

	return router
}

// Server runs the HTTP API until its context is canceled.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// New creates a Server listening on addr.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.WithComponent("server"),
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("Server stopped")
	return nil
}
