package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_MODE", "mock")
	t.Setenv("WEATHER_DEMO_MODE", "sunny")
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("REDIS_URL", "")
}

func TestCommandNameSkipsFlags(t *testing.T) {
	if got := commandName([]string{"-v", "plan", "--origin", "Dallas"}); got != "plan" {
		t.Fatalf("commandName() = %q", got)
	}
	if got := commandName([]string{"--help"}); got != "" {
		t.Fatalf("commandName() = %q", got)
	}
}

func TestPlanCmdRequestSplitsInterests(t *testing.T) {
	cmd := &PlanCmd{
		Origin:      " Dallas, TX ",
		Destination: "Austin, TX",
		StartDate:   "2025-06-10",
		EndDate:     "2025-06-13",
		Budget:      1200,
		Travelers:   2,
		Interests:   []string{"food, music", " ", "museums"},
	}
	req, err := cmd.request()
	if err != nil {
		t.Fatalf("request() error = %v", err)
	}
	if req.Origin != "Dallas, TX" || req.Travelers != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	want := []string{"food", "music", "museums"}
	if len(req.Interests) != len(want) {
		t.Fatalf("interests = %v, want %v", req.Interests, want)
	}
	for i := range want {
		if req.Interests[i] != want[i] {
			t.Fatalf("interests = %v, want %v", req.Interests, want)
		}
	}

	cmd.StartDate = "10/06/2025"
	if _, err := cmd.request(); err == nil {
		t.Fatalf("expected date error")
	}
}

func TestRunPlanPrintsTripAndWritesWorkbook(t *testing.T) {
	offlineEnv(t)
	workbook := filepath.Join(t.TempDir(), "trip.xlsx")

	var out bytes.Buffer
	err := run([]string{
		"plan",
		"--origin", "Dallas, TX",
		"--destination", "Austin, TX",
		"--start", "2025-06-10",
		"--end", "2025-06-13",
		"--budget", "1500",
		"--interest", "food",
		"--xlsx", workbook,
	}, &out, 0)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var trip domain.Trip
	if err := json.Unmarshal(out.Bytes(), &trip); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if trip.Status != domain.TripStatusReady {
		t.Fatalf("status = %s", trip.Status)
	}
	info, err := os.Stat(workbook)
	if err != nil || info.Size() == 0 {
		t.Fatalf("workbook not written: %v", err)
	}
}

func TestRunPlanRequiresFlags(t *testing.T) {
	err := run([]string{"plan", "--origin", "Dallas"}, &bytes.Buffer{}, 0)
	var flagsErr *flags.Error
	if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrRequired {
		t.Fatalf("error = %v, want ErrRequired", err)
	}
}
