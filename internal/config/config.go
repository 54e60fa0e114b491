package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nutrilabel/internal/logger"
)

// OCR providers.
const (
	ProviderVision     = "vision"
	ProviderDocumentAI = "documentai"
)

// Config holds application configuration read from the environment.
type Config struct {
	// OpenAI Configuration
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float32
	SummaryMaxRetries int

	// OCR Configuration
	OCRProvider           string
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Google Cloud Storage batch input
	GCSSourceBucket string

	// OCR cache
	RedisAddr   string
	OCRCacheTTL time.Duration

	// Review history
	HistoryDBPath string

	// HTTP API
	HTTPPort           string
	CORSAllowedOrigins []string

	BatchWorkers int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogNoColor    bool
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAITemperature:     float32(getEnvFloat("OPENAI_TEMPERATURE", 0.7)),
		SummaryMaxRetries:     getEnvInt("SUMMARY_MAX_RETRIES", 3),
		OCRProvider:           strings.ToLower(getEnv("OCR_PROVIDER", ProviderVision)),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Reviews"),
		GCSSourceBucket:       getEnv("GCS_SOURCE_BUCKET", ""),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		OCRCacheTTL:           getEnvDuration("OCR_CACHE_TTL", 24*time.Hour),
		HistoryDBPath:         getEnv("HISTORY_DB_PATH", "nutrilabel.db"),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		CORSAllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		BatchWorkers:          getEnvInt("BATCH_WORKERS", 12),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
		LogNoColor:            getEnvBool("LOG_NO_COLOR", false),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate rejects malformed values. Missing credentials are reported by the
// commands that need them.
func (c *Config) validate() error {
	switch c.OCRProvider {
	case ProviderVision, ProviderDocumentAI:
	default:
		return fmt.Errorf("OCR_PROVIDER must be %q or %q, got %q", ProviderVision, ProviderDocumentAI, c.OCRProvider)
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be within 0 and 2, got %v", c.OpenAITemperature)
	}
	if c.SummaryMaxRetries <= 0 {
		return fmt.Errorf("SUMMARY_MAX_RETRIES must be positive, got %d", c.SummaryMaxRetries)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers)
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("HTTP_PORT must be numeric, got %q", c.HTTPPort)
	}
	if c.OCRCacheTTL < 0 {
		return fmt.Errorf("OCR_CACHE_TTL must not be negative, got %s", c.OCRCacheTTL)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		NoColor:    c.LogNoColor,
	}
}

// HTTPAddr is the listen address of the HTTP API.
func (c *Config) HTTPAddr() string {
	return ":" + c.HTTPPort
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// The typed helpers return -1 for an unparseable value so that validate
// reports it rather than silently using the default.

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return -1
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return parsed
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
