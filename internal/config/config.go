package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort           string
	APIMaxConns       int
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	LogLevel          string

	// PostgresDSN selects the Postgres trip store; empty keeps trips in memory.
	PostgresDSN string

	// NATSURL enables asynchronous planning; empty disables the queue.
	NATSURL     string
	NATSSubject string

	RedisURL string
	CacheTTL time.Duration

	GatewayMode       string
	GatewayTimeout    time.Duration
	GoogleMapsAPIKey  string
	OpenWeatherAPIKey string
	WeatherDemoMode   string

	LLMProvider    string
	OllamaURL      string
	OllamaGenModel string
	LLMAPIBase     string
	LLMAPIKey      string
	LLMModel       string
	EnrichWithLLM  bool

	PlannerTimeout  time.Duration
	StepTimeout     time.Duration
	EnrichTimeout   time.Duration
	MaxActivities   int
	ThreadTravelers bool

	WorkerMetricsPort string
}

const (
	GatewayModeMock = "mock"
	GatewayModeLive = "live"

	LLMProviderNone   = "none"
	LLMProviderOllama = "ollama"
	LLMProviderOpenAI = "openai"
)

func Load() Config {
	return Config{
		APIPort:           mustEnv("API_PORT", "8080"),
		APIMaxConns:       mustEnvInt("API_MAX_CONNS", 256),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),
		LogLevel:          mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "itinerary.trip.requested"),

		RedisURL: mustEnv("REDIS_URL", ""),
		CacheTTL: mustEnvDuration("CACHE_TTL", 15*time.Minute),

		GatewayMode:       strings.ToLower(mustEnv("GATEWAY_MODE", GatewayModeMock)),
		GatewayTimeout:    mustEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		GoogleMapsAPIKey:  mustEnv("GOOGLE_MAPS_API_KEY", ""),
		OpenWeatherAPIKey: mustEnv("OPENWEATHER_API_KEY", ""),
		WeatherDemoMode:   strings.ToLower(mustEnv("WEATHER_DEMO_MODE", "sunny")),

		LLMProvider:    strings.ToLower(mustEnv("LLM_PROVIDER", LLMProviderNone)),
		OllamaURL:      mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel: mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		LLMAPIBase:     mustEnv("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMAPIKey:      mustEnv("LLM_API_KEY", ""),
		LLMModel:       mustEnv("LLM_MODEL", "gpt-4o-mini"),
		EnrichWithLLM:  mustEnvBool("ENRICH_WITH_LLM", true),

		PlannerTimeout:  mustEnvDuration("PLANNER_TIMEOUT", 30*time.Second),
		StepTimeout:     mustEnvDuration("STEP_TIMEOUT", 20*time.Second),
		EnrichTimeout:   mustEnvDuration("ENRICH_TIMEOUT", 20*time.Second),
		MaxActivities:   mustEnvInt("MAX_ACTIVITIES", 6),
		ThreadTravelers: mustEnvBool("THREAD_TRAVELERS", false),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("45s") and bare seconds ("45").
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
