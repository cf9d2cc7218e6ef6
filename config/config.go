/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L4
Logic:       Full engine configuration: server, durable store,
             analyzer secret, microblog API tuning, crawl and
             analysis concurrency bounds, Redis cache.
Root Cause:  The pipeline, store, and HTTP surface all read
             tuning knobs from the environment; one Load() keeps
             them consistent across subcommands.
Context:     Extends the minimal serve config to Sprint tasks
             T203-T214 (crawler + analyzer tuning).
Suitability: L4 model used for security-critical config design.
──────────────────────────────────────────────────────────────
*/

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration values.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration
	MaxBodyBytes    int64

	// Durable store
	DatabasePath string

	// Redis (optional read cache)
	RedisURL string

	// Analyzer
	AnalyzerAPIKey      string
	AnalyzerModel       string
	AnalyzerBaseURL     string
	AnalyzerTimeout     time.Duration
	AnalysisConcurrency int

	// Crawling
	FetchConcurrency int
	FetchTimeout     time.Duration

	// Microblog search API
	MicroblogBearerToken string
	MicroblogTimeout     time.Duration
	MicroblogMaxRetries  int
	MicroblogBaseBackoff time.Duration
	MicroblogMaxBackoff  time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("GRACEFUL_TIMEOUT_SEC", 15)

	analysisConc := getEnvInt("ANALYSIS_CONCURRENCY", 12)
	if analysisConc < 10 {
		analysisConc = 10
	}

	cfg := &Config{
		Addr:            getEnv("ADDR", ":8080"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 1*1024*1024)),

		DatabasePath: getEnv("DATABASE_PATH", "regintel.db"),
		RedisURL:     getEnv("REDIS_URL", ""),

		AnalyzerAPIKey:      getEnv("MINIMAX_API_KEY", ""),
		AnalyzerModel:       getEnv("ANALYZER_MODEL", "MiniMax-Text-01"),
		AnalyzerBaseURL:     getEnv("ANALYZER_BASE_URL", "https://api.minimax.io/v1"),
		AnalyzerTimeout:     time.Duration(getEnvInt("ANALYZER_TIMEOUT_SEC", 60)) * time.Second,
		AnalysisConcurrency: analysisConc,

		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 5),
		FetchTimeout:     time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 30)) * time.Second,

		MicroblogBearerToken: getEnv("X_BEARER_TOKEN", ""),
		MicroblogTimeout:     time.Duration(getEnvInt("X_API_TIMEOUT_MS", 15000)) * time.Millisecond,
		MicroblogMaxRetries:  getEnvInt("X_API_MAX_RETRIES", 4),
		MicroblogBaseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 1500)) * time.Millisecond,
		MicroblogMaxBackoff:  time.Duration(getEnvInt("X_API_MAX_BACKOFF_MS", 30000)) * time.Millisecond,

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
