package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "STATIC_DIR", "INFERENCE_ENDPOINT", "INFERENCE_API_KEY",
		"INFERENCE_MODEL_ID", "INFERENCE_TIMEOUT_SECONDS", "WORKER_COUNT", "MAX_UPLOAD_BYTES",
		"REDIS_ADDR", "DATABASE_DSN", "JWT_SECRET", "JWT_AUDIENCE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("unexpected worker count: %d", cfg.WorkerCount)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes)
	}
	if cfg.InferenceTimeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.InferenceTimeout)
	}
	if cfg.InferenceConfigured() {
		t.Fatal("expected inference to be unconfigured by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("INFERENCE_API_KEY", "key")
	t.Setenv("INFERENCE_MODEL_ID", "defects/3")
	t.Setenv("INFERENCE_TIMEOUT_SECONDS", "5")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("unexpected port: %q", cfg.Port)
	}
	if !cfg.InferenceConfigured() {
		t.Fatal("expected inference to be configured")
	}
	if cfg.InferenceTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.InferenceTimeout)
	}
	if cfg.WorkerCount != 8 {
		t.Fatalf("unexpected worker count: %d", cfg.WorkerCount)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes)
	}
}

func TestLoadIgnoresInvalidNumericOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "banana")
	t.Setenv("INFERENCE_TIMEOUT_SECONDS", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.InferenceTimeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.InferenceTimeout)
	}
}
