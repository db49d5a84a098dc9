package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsToLocalMockSetup(t *testing.T) {
	for _, key := range []string{"POSTGRES_DSN", "NATS_URL", "REDIS_URL", "GATEWAY_MODE", "LLM_PROVIDER", "THREAD_TRAVELERS", "MAX_ACTIVITIES", "PLANNER_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" || cfg.RedisURL != "" {
		t.Fatalf("expected no external stores by default, got %+v", cfg)
	}
	if cfg.GatewayMode != GatewayModeMock {
		t.Fatalf("expected mock gateway, got %q", cfg.GatewayMode)
	}
	if cfg.LLMProvider != LLMProviderNone {
		t.Fatalf("expected no llm provider, got %q", cfg.LLMProvider)
	}
	if cfg.ThreadTravelers {
		t.Fatalf("expected THREAD_TRAVELERS to default to false")
	}
	if cfg.MaxActivities != 6 {
		t.Fatalf("expected default max activities 6, got %d", cfg.MaxActivities)
	}
	if cfg.PlannerTimeout != 30*time.Second {
		t.Fatalf("expected default planner timeout 30s, got %s", cfg.PlannerTimeout)
	}
	if cfg.NATSSubject != "itinerary.trip.requested" {
		t.Fatalf("unexpected default subject %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "LIVE")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("GATEWAY_TIMEOUT", "3")
	t.Setenv("THREAD_TRAVELERS", "true")
	t.Setenv("MAX_ACTIVITIES", "4")

	cfg := Load()
	if cfg.GatewayMode != GatewayModeLive || cfg.LLMProvider != LLMProviderOpenAI {
		t.Fatalf("expected lowercased modes, got %q / %q", cfg.GatewayMode, cfg.LLMProvider)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Fatalf("expected cache ttl 90s, got %s", cfg.CacheTTL)
	}
	if cfg.GatewayTimeout != 3*time.Second {
		t.Fatalf("expected bare seconds to parse, got %s", cfg.GatewayTimeout)
	}
	if !cfg.ThreadTravelers || cfg.MaxActivities != 4 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("API_MAX_CONNS", "many")
	t.Setenv("API_RATE_LIMIT_RPS", "fast")
	t.Setenv("CACHE_TTL", "-5m")
	t.Setenv("STEP_TIMEOUT", "soon")
	t.Setenv("THREAD_TRAVELERS", "maybe")

	cfg := Load()
	if cfg.APIMaxConns != 256 || cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected numeric defaults, got %d / %v", cfg.APIMaxConns, cfg.APIRateLimitRPS)
	}
	if cfg.CacheTTL != 15*time.Minute || cfg.StepTimeout != 20*time.Second {
		t.Fatalf("expected duration defaults, got %s / %s", cfg.CacheTTL, cfg.StepTimeout)
	}
	if cfg.ThreadTravelers {
		t.Fatalf("expected bool default for invalid value")
	}
}
