package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	GroqAPIKey      string
	GroqModel       string
	GroqBaseURL     string
	GroqTemperature float64
	GroqMaxTokens   int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	BatchWorkers      int
	GlobalConcurrency int
	SyncMaxRecords    int

	JobRetention  time.Duration
	JobTimeout    time.Duration
	SweepInterval time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		GroqAPIKey:        os.Getenv("GROQ_API_KEY"),
		GroqModel:         getEnv("GROQ_MODEL", "openai/gpt-oss-120b"),
		GroqBaseURL:       getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqTemperature:   getEnvFloat("GROQ_TEMPERATURE", 0.7),
		GroqMaxTokens:     getEnvInt("GROQ_MAX_TOKENS", 1100),
		RetryMaxAttempts:  getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:    getEnvDuration("RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:     getEnvDuration("RETRY_MAX_DELAY", 10*time.Second),
		BatchWorkers:      getEnvInt("BATCH_WORKERS", 4),
		GlobalConcurrency: getEnvInt("GLOBAL_CONCURRENCY", 16),
		SyncMaxRecords:    getEnvInt("SYNC_MAX_RECORDS", 5),
		JobRetention:      getEnvDuration("JOB_RETENTION", 30*time.Minute),
		JobTimeout:        getEnvDuration("JOB_TIMEOUT", 20*time.Minute),
		SweepInterval:     getEnvDuration("JOB_SWEEP_INTERVAL", time.Minute),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}

	if cfg.BatchWorkers < 1 {
		return nil, fmt.Errorf("BATCH_WORKERS must be at least 1")
	}

	if cfg.GlobalConcurrency < cfg.BatchWorkers {
		cfg.GlobalConcurrency = cfg.BatchWorkers
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
