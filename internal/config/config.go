package config

import (
	"os"
	"strconv"
	"time"
)

const (
	NvidiaBaseURL     = "https://integrate.api.nvidia.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	APIToken    string

	NvidiaAPIKey     string
	OpenRouterAPIKey string
	PrimaryBaseURL   string
	PrimaryModel     string
	FallbackModel    string
	VisionModel      string
	FallbackVision   string
	MaxTokens        int

	CacheDir string
	CacheTTL time.Duration

	ServerURL string
}

func Load() Config {
	return Config{
		Port:        envInt("SITESMITH_PORT", 8760),
		NatsURL:     envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("SITESMITH_API_TOKEN", ""),

		NvidiaAPIKey:     envStr("NVIDIA_API_KEY", ""),
		OpenRouterAPIKey: envStr("OPENROUTER_API_KEY", ""),
		PrimaryBaseURL:   envStr("SITESMITH_PRIMARY_BASE_URL", NvidiaBaseURL),
		PrimaryModel:     envStr("SITESMITH_PRIMARY_MODEL", "moonshotai/kimi-k2-instruct"),
		FallbackModel:    envStr("SITESMITH_FALLBACK_MODEL", "meta-llama/llama-3.1-405b-instruct"),
		VisionModel:      envStr("SITESMITH_VISION_MODEL", "nvidia/llama-3.1-nemotron-nano-vl-8b-v1"),
		FallbackVision:   envStr("SITESMITH_FALLBACK_VISION_MODEL", "Qwen/Qwen2.5-VL-72B-Instruct"),
		MaxTokens:        envInt("SITESMITH_MAX_TOKENS", 85000),

		CacheDir: envStr("SITESMITH_CACHE_DIR", ""),
		CacheTTL: envDuration("SITESMITH_CACHE_TTL", 24*time.Hour),

		ServerURL: envStr("SITESMITH_SERVER_URL", "http://localhost:8760"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
