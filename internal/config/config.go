package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every process-wide setting. It is loaded once at startup
// and treated as immutable for the process lifetime.
type Config struct {
	Port      string
	LogLevel  string
	StaticDir string

	// Remote inference provider.
	InferenceEndpoint string
	InferenceAPIKey   string
	InferenceModelID  string
	InferenceTimeout  time.Duration

	// Per-request fan-out.
	WorkerCount    int
	MaxUploadBytes int64

	// Optional integrations; empty means disabled.
	RedisAddr   string
	DatabaseDSN string
	JWTSecret   string
	JWTAudience string
}

const defaultMaxUploadBytes = 10 << 20 // 10 MiB per file

// Load reads configuration from the environment, with a .env file applied
// first if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StaticDir:         getEnv("STATIC_DIR", "./static"),
		InferenceEndpoint: getEnv("INFERENCE_ENDPOINT", "https://detect.roboflow.com"),
		InferenceAPIKey:   os.Getenv("INFERENCE_API_KEY"),
		InferenceModelID:  os.Getenv("INFERENCE_MODEL_ID"),
		InferenceTimeout:  30 * time.Second,
		WorkerCount:       4,
		MaxUploadBytes:    defaultMaxUploadBytes,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		DatabaseDSN:       os.Getenv("DATABASE_DSN"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTAudience:       os.Getenv("JWT_AUDIENCE"),
	}

	if raw := os.Getenv("INFERENCE_TIMEOUT_SECONDS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.InferenceTimeout = time.Duration(parsed) * time.Second
		}
	}
	if raw := os.Getenv("WORKER_COUNT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.WorkerCount = parsed
		}
	}
	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			cfg.MaxUploadBytes = parsed
		}
	}

	return cfg, nil
}

// InferenceConfigured reports whether the remote provider can be called at
// all. The check is deliberately enforced per request, after upload
// validation, so client mistakes are diagnosed before operator mistakes.
func (c *Config) InferenceConfigured() bool {
	return c.InferenceAPIKey != "" && c.InferenceModelID != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
