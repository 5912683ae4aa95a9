package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	BaseURL         string
	MaxUploadMB     int
	ShutdownTimeout time.Duration
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ConverterConfig defines the LibreOffice conversion path and its guard.
type ConverterConfig struct {
	Binary      string
	MaxWorkers  int
	Timeout     time.Duration
	RedisURL    string // empty disables the shared breaker
	BreakerBase time.Duration
	BreakerMax  time.Duration
}

// ToolsConfig holds tool-specific knobs. The signature font path is owned by
// sigfont (SIGNATURE_FONT_PATH heads its candidate list).
type ToolsConfig struct {
	DefaultSigWidthPt float64
	PreviewDPI        int
	PreviewQuality    int
}

// ScratchConfig controls the workdir root and sweeper.
type ScratchConfig struct {
	Root          string
	SweepMaxAge   time.Duration
	SweepInterval time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Converter ConverterConfig
	Tools     ToolsConfig
	Scratch   ScratchConfig
}

// FromEnv loads configuration from environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		MaxUploadMB:     parseInt(getEnv("MAX_UPLOAD_MB", "64"), 64),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdftoolbox.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdftoolbox",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Converter = ConverterConfig{
		Binary:      getEnv("LIBREOFFICE_BINARY", "libreoffice"),
		MaxWorkers:  parseInt(getEnv("CONVERTER_MAX_WORKERS", "2"), 2),
		Timeout:     parseDuration(getEnv("CONVERTER_TIMEOUT", "180s"), 180*time.Second),
		RedisURL:    getEnv("REDIS_URL", ""),
		BreakerBase: parseDuration(getEnv("BREAKER_BASE_BACKOFF", "30s"), 30*time.Second),
		BreakerMax:  parseDuration(getEnv("BREAKER_MAX_BACKOFF", "5m"), 5*time.Minute),
	}

	cfg.Tools = ToolsConfig{
		DefaultSigWidthPt: parseFloat(getEnv("SIG_WIDTH_PT", "200"), 200),
		PreviewDPI:        parseInt(getEnv("PREVIEW_DPI", "96"), 96),
		PreviewQuality:    parseInt(getEnv("PREVIEW_QUALITY", "80"), 80),
	}

	cfg.Scratch = ScratchConfig{
		Root:          getEnv("SCRATCH_ROOT", ""),
		SweepMaxAge:   parseDuration(getEnv("SCRATCH_SWEEP_MAX_AGE", "1h"), time.Hour),
		SweepInterval: parseDuration(getEnv("SCRATCH_SWEEP_INTERVAL", "15m"), 15*time.Minute),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
