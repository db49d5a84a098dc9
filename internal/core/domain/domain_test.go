package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestUserRequestValidate(t *testing.T) {
	valid := UserRequest{
		Origin:      "Austin, TX",
		Destination: "Dallas, TX",
		StartDate:   NewDate(2025, 6, 1),
		EndDate:     NewDate(2025, 6, 3),
		Travelers:   2,
		BudgetTotal: 800,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cases := map[string]func(r *UserRequest){
		"missing origin":   func(r *UserRequest) { r.Origin = " " },
		"missing dest":     func(r *UserRequest) { r.Destination = "" },
		"missing date":     func(r *UserRequest) { r.EndDate = Date{} },
		"end before start": func(r *UserRequest) { r.EndDate = NewDate(2025, 5, 30) },
		"no travelers":     func(r *UserRequest) { r.Travelers = 0 },
		"negative budget":  func(r *UserRequest) { r.BudgetTotal = -1 },
	}
	for name, mutate := range cases {
		req := valid
		mutate(&req)
		if err := req.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}

	if valid.Nights() != 2 || valid.Days() != 3 {
		t.Fatalf("unexpected stay length nights=%d days=%d", valid.Nights(), valid.Days())
	}
}

func TestDateJSON(t *testing.T) {
	var req UserRequest
	if err := json.Unmarshal([]byte(`{"start_date":"2025-12-24","end_date":""}`), &req); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if req.StartDate.String() != "2025-12-24" {
		t.Fatalf("unexpected start date %s", req.StartDate)
	}
	if !req.EndDate.IsZero() {
		t.Fatalf("expected zero end date")
	}
	if req.StartDate.Season() != "winter" {
		t.Fatalf("expected winter, got %s", req.StartDate.Season())
	}

	if err := json.Unmarshal([]byte(`{"start_date":"24/12/2025"}`), &req); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPlanBNightlyCap(t *testing.T) {
	cases := []struct {
		original, remaining float64
		nights              int
		want                float64
	}{
		{original: 200, remaining: 450, nights: 2, want: 160},
		{original: 200, remaining: 250, nights: 2, want: 100},
		{original: 200, remaining: 60, nights: 3, want: MinViableNightlyPrice},
		{original: 0, remaining: 1000, nights: 0, want: 160},
	}
	for _, tc := range cases {
		if got := PlanBNightlyCap(tc.original, tc.remaining, tc.nights); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("PlanBNightlyCap(%v, %v, %d) = %v, want %v", tc.original, tc.remaining, tc.nights, got, tc.want)
		}
	}
}

func TestAllocateBudgetSmallBudget(t *testing.T) {
	alloc := AllocateBudget(300)
	if alloc.Transport != 30 || math.Abs(alloc.LodgingTarget-162) > 1e-9 || alloc.ActivitiesBuffer != 150 {
		t.Fatalf("unexpected allocation %+v", alloc)
	}
}

func TestDistanceMilesAndCityLookup(t *testing.T) {
	austin, ok := LookupCity("Austin, TX")
	if !ok {
		t.Fatalf("expected austin in table")
	}
	dallas := GeocodeCity(" dallas ")
	d := DistanceMiles(austin, dallas)
	if d < 175 || d > 190 {
		t.Fatalf("unexpected austin-dallas distance %.1f", d)
	}
	if DistanceMiles(austin, austin) != 0 {
		t.Fatalf("expected zero distance")
	}
	if GeocodeCity("Atlantis") != DefaultCityCenter {
		t.Fatalf("expected default center for unknown city")
	}
	if CityName("Dallas, TX") != "Dallas" {
		t.Fatalf("unexpected city name")
	}
}

func TestAgentStateRecordTracksNetSpend(t *testing.T) {
	state := NewAgentState(1000, nil, nil)
	state.Record(ToolResult{Tool: ToolSearchLodging, CostEstimate: 400})
	state.Record(ToolResult{Tool: ToolLodgingPlanB, CostEstimate: 150, Credit: 400})
	state.Record(ToolResult{Tool: ToolSelectActivities, CostEstimate: 60})

	if math.Abs(state.BudgetRemaining-790) > 1e-9 {
		t.Fatalf("expected 790 remaining, got %v", state.BudgetRemaining)
	}
	if math.Abs(state.CommittedSpend()-210) > 1e-9 {
		t.Fatalf("expected 210 committed, got %v", state.CommittedSpend())
	}
	if state.Travelers() != DefaultCostTravelers {
		t.Fatalf("expected default travelers")
	}
}

func TestForecastRainyThreshold(t *testing.T) {
	if (Forecast{RainChance: 0.5}).Rainy() {
		t.Fatalf("0.5 must not count as rainy")
	}
	if !(Forecast{RainChance: 0.51}).Rainy() {
		t.Fatalf("0.51 must count as rainy")
	}
}

func TestLatestForecastSkipsFailedLookups(t *testing.T) {
	state := NewAgentState(1000, nil, nil)
	if _, ok := state.LatestForecast(); ok {
		t.Fatalf("empty log should have no forecast")
	}

	state.Record(ToolResult{
		Tool:   ToolForecastWeather,
		Output: ToolOutput{Status: StatusSuccess, Forecast: &Forecast{Status: StatusSuccess, Summary: "Sunny", RainChance: 0.1}},
	})
	state.Record(ToolResult{
		Tool:   ToolForecastWeather,
		Output: ToolOutput{Status: StatusError, Forecast: &Forecast{Status: StatusError, Error: "upstream timeout"}},
	})

	forecast, ok := state.LatestForecast()
	if !ok || forecast.Summary != "Sunny" {
		t.Fatalf("LatestForecast() = %+v, %v; want the earlier successful forecast", forecast, ok)
	}
}
