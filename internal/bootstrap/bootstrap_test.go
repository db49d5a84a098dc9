package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirillkom/itinerary-agent/internal/config"
	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

func offlineConfig() config.Config {
	return config.Config{
		GatewayMode:     config.GatewayModeMock,
		WeatherDemoMode: "sunny",
		LLMProvider:     config.LLMProviderNone,
		PlannerTimeout:  time.Second,
		StepTimeout:     time.Second,
		EnrichTimeout:   time.Second,
		MaxActivities:   6,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewOfflineAppPlansEndToEnd(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, offlineConfig(), Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Queue != nil {
		t.Fatalf("queue should be disabled without NATS_URL")
	}

	trip, err := app.TripsUC.Plan(ctx, domain.UserRequest{
		Origin:      "Dallas, TX",
		Destination: "Austin, TX",
		StartDate:   domain.NewDate(2025, time.June, 10),
		EndDate:     domain.NewDate(2025, time.June, 13),
		Travelers:   2,
		BudgetTotal: 1500,
		Interests:   []string{"food"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if trip.Status != domain.TripStatusReady || trip.Itinerary == nil {
		t.Fatalf("unexpected trip: status=%s itinerary=%v", trip.Status, trip.Itinerary != nil)
	}

	stored, err := app.Repo.GetByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != domain.TripStatusReady {
		t.Fatalf("stored status = %s", stored.Status)
	}

	payload, err := app.TripsUC.ExportByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("ExportByID() error = %v", err)
	}
	if len(payload) == 0 {
		t.Fatalf("empty export")
	}
}

func TestNewEnqueueWithoutQueueIsTemporary(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, offlineConfig(), Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	_, err = app.TripsUC.Enqueue(ctx, domain.UserRequest{
		Origin:      "Dallas, TX",
		Destination: "Austin, TX",
		StartDate:   domain.NewDate(2025, time.June, 10),
		EndDate:     domain.NewDate(2025, time.June, 12),
		Travelers:   1,
		BudgetTotal: 800,
	})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("Enqueue() error = %v, want temporary", err)
	}
}

func TestNewRejectsUnknownModes(t *testing.T) {
	cases := map[string]func(*config.Config){
		"gateway": func(cfg *config.Config) { cfg.GatewayMode = "carrier-pigeon" },
		"llm":     func(cfg *config.Config) { cfg.LLMProvider = "oracle" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := offlineConfig()
			mutate(&cfg)
			if _, err := New(context.Background(), cfg, Options{Logger: quietLogger()}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestQueueOptionsPublishThroughResilience(t *testing.T) {
	cfg := offlineConfig()
	opts := queueOptions(cfg, quietLogger())
	if opts.ResilienceExecutor == nil {
		t.Fatalf("queue publishes must go through the resilience executor")
	}
	if want := cfg.PlannerTimeout + 8*cfg.StepTimeout + cfg.EnrichTimeout; opts.HandlerTimeout != want {
		t.Fatalf("handler timeout = %s, want %s", opts.HandlerTimeout, want)
	}
}
