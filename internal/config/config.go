package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
}

type ExtractionConfig struct {
	// MinImageBytes rejects near-empty captures before any model call.
	MinImageBytes int
	// MaxBodyBytes caps the inbound request body.
	MaxBodyBytes int64
}

type RateLimitConfig struct {
	// Ceiling is the number of requests allowed per client IP per window.
	Ceiling int
	Window  time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// Retries are the client's responsibility; the server forwards each
	// request to the model exactly once unless configured otherwise.
	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	minImageBytes, err := getEnvInt("EXTRACT_MIN_IMAGE_BYTES", 128)
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACT_MIN_IMAGE_BYTES: %w", err)
	}

	maxBodyBytes, err := getEnvInt("EXTRACT_MAX_BODY_BYTES", 20<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACT_MAX_BODY_BYTES: %w", err)
	}

	rlCeiling, err := getEnvInt("RATE_LIMIT_CEILING", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_CEILING: %w", err)
	}

	rlWindowSec, err := getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW_SECONDS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
		},
		Extraction: ExtractionConfig{
			MinImageBytes: minImageBytes,
			MaxBodyBytes:  int64(maxBodyBytes),
		},
		RateLimit: RateLimitConfig{
			Ceiling: rlCeiling,
			Window:  time.Duration(rlWindowSec) * time.Second,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that at least one model credential is present. Without it
// every extraction request would fail at the provider boundary.
func (c *Config) Validate() error {
	var missing []string
	if c.LLM.OpenAIKey == "" && c.LLM.AnthropicKey == "" {
		missing = append(missing, "OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
