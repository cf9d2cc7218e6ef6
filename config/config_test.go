package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/jnyross/regintel/config"
)

func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("DATABASE_PATH", ":memory:")
	os.Setenv("MINIMAX_API_KEY", "secret")
	os.Setenv("ENV", "test")
	os.Setenv("X_API_TIMEOUT_MS", "2500")
	defer func() {
		os.Unsetenv("DATABASE_PATH")
		os.Unsetenv("MINIMAX_API_KEY")
		os.Unsetenv("ENV")
		os.Unsetenv("X_API_TIMEOUT_MS")
	}()

	cfg := config.Load()
	if cfg.DatabasePath != ":memory:" {
		t.Fatalf("expected DATABASE_PATH to be loaded, got %s", cfg.DatabasePath)
	}
	if cfg.AnalyzerAPIKey != "secret" {
		t.Fatalf("expected MINIMAX_API_KEY to be loaded, got %s", cfg.AnalyzerAPIKey)
	}
	if cfg.Env != "test" {
		t.Fatalf("expected ENV=test, got %s", cfg.Env)
	}
	if cfg.MicroblogTimeout != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s microblog timeout, got %s", cfg.MicroblogTimeout)
	}
}

func TestAnalysisConcurrencyClamped(t *testing.T) {
	os.Setenv("ANALYSIS_CONCURRENCY", "2")
	defer os.Unsetenv("ANALYSIS_CONCURRENCY")

	cfg := config.Load()
	if cfg.AnalysisConcurrency != 10 {
		t.Fatalf("expected concurrency clamped to 10, got %d", cfg.AnalysisConcurrency)
	}
}

func TestDefaults(t *testing.T) {
	os.Unsetenv("ANALYSIS_CONCURRENCY")
	cfg := config.Load()
	if cfg.AnalysisConcurrency != 12 {
		t.Fatalf("expected default concurrency 12, got %d", cfg.AnalysisConcurrency)
	}
	if cfg.FetchConcurrency != 5 {
		t.Fatalf("expected default fetch concurrency 5, got %d", cfg.FetchConcurrency)
	}
	if cfg.MicroblogMaxRetries != 4 {
		t.Fatalf("expected default 4 retries, got %d", cfg.MicroblogMaxRetries)
	}
}
