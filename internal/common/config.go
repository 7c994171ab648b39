package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Catalog         CatalogConfig
	Providers       ProvidersConfig
	RateLimit       RateLimitConfig
	Worker          WorkerConfig
	Ingest          IngestConfig
	DefaultCurrency string
}

// CatalogConfig holds property-catalog configuration.
type CatalogConfig struct {
	Driver      string // "postgres" | "sqlite"
	DSN         string
	DialTimeout time.Duration
}

// ProvidersConfig holds language-model provider configuration.
type ProvidersConfig struct {
	Pinned   string   // force a named provider; empty = automatic selection
	Priority []string // fallback order for automatic selection

	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	GeminiKey      string
	GeminiModel    string

	Temperature float32
	Timeout     time.Duration
}

// RateLimitConfig holds limiter and response-cache configuration.
type RateLimitConfig struct {
	MaxPerWindow int           // request ceiling per 60s window
	Adaptive     bool          // lower the ceiling on provider 429s
	QueueWait    time.Duration // how long a queued request may wait for capacity
	CacheTTL     time.Duration
}

// WorkerConfig holds background worker pool configuration.
type WorkerConfig struct {
	Count       int
	QueueSize   int
	MaxAttempts int
	BackoffBase time.Duration
}

// IngestConfig holds inbox watcher configuration.
type IngestConfig struct {
	InboxDir    string
	InitialScan bool
	Debounce    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Driver:      getEnv("CATALOG_DRIVER", "postgres"),
			DSN:         getEnv("CATALOG_DSN", ""),
			DialTimeout: getEnvAsDuration("CATALOG_DIAL_TIMEOUT", 3*time.Second),
		},
		Providers: ProvidersConfig{
			Pinned:         getEnv("LLM_PROVIDER", ""),
			Priority:       getEnvAsList("LLM_PRIORITY", []string{"openai", "anthropic", "gemini"}),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			GeminiKey:      getEnv("GEMINI_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature:    getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		RateLimit: RateLimitConfig{
			MaxPerWindow: getEnvAsInt("RATE_MAX_PER_WINDOW", 30),
			Adaptive:     getEnvAsBool("RATE_ADAPTIVE", true),
			QueueWait:    getEnvAsDuration("RATE_QUEUE_WAIT", 30*time.Second),
			CacheTTL:     getEnvAsDuration("RATE_CACHE_TTL", 5*time.Minute),
		},
		Worker: WorkerConfig{
			Count:       getEnvAsInt("WORKER_COUNT", 2),
			QueueSize:   getEnvAsInt("WORKER_QUEUE_SIZE", 128),
			MaxAttempts: getEnvAsInt("WORKER_MAX_ATTEMPTS", 3),
			BackoffBase: getEnvAsDuration("WORKER_BACKOFF_BASE", time.Second),
		},
		Ingest: IngestConfig{
			InboxDir:    getEnv("INBOX_DIR", ""),
			InitialScan: getEnvAsBool("INBOX_INITIAL_SCAN", true),
			Debounce:    getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
		},
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "EUR"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Providers.OpenAIKey == "" && c.Providers.AnthropicKey == "" && c.Providers.GeminiKey == "" {
		return NewAppError("CONFIG_ERROR", "at least one provider API key is required", ErrInvalidInput)
	}
	if c.RateLimit.MaxPerWindow <= 0 {
		return NewAppError("CONFIG_ERROR", "RATE_MAX_PER_WINDOW must be positive", ErrInvalidInput)
	}
	if c.Worker.Count <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_COUNT must be positive", ErrInvalidInput)
	}
	return nil
}
