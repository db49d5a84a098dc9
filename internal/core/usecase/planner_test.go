package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

func newTestPlanner(t *testing.T, generator *generatorFake, metrics *metricsFake) *Planner {
	t.Helper()
	opts := PlannerOptions{Logger: discardLogger()}
	if metrics != nil {
		opts.Metrics = metrics
	}
	var p *Planner
	var err error
	if generator == nil {
		p, err = NewPlanner(nil, opts)
	} else {
		p, err = NewPlanner(generator, opts)
	}
	require.NoError(t, err)
	return p
}

func TestCreatePlanWithoutGeneratorUsesFallback(t *testing.T) {
	metrics := newMetricsFake()
	p := newTestPlanner(t, nil, metrics)
	req := testRequest()

	state := p.CreatePlan(context.Background(), req)

	tools := make([]domain.ToolID, 0, len(state.Plan))
	for _, step := range state.Plan {
		tools = append(tools, step.Tool)
	}
	require.Equal(t, []domain.ToolID{
		domain.ToolFindDirections,
		domain.ToolSearchLodging,
		domain.ToolForecastWeather,
		domain.ToolSearchPlaces,
		domain.ToolSearchPlaces,
		domain.ToolSynthesis,
	}, tools)
	require.Equal(t, 1000.0, state.BudgetRemaining)
	require.NotNil(t, state.Allocations)
	require.InDelta(t, 50.0, state.Allocations.Transport, 1e-9)
	require.InDelta(t, 570.0, state.Allocations.LodgingTarget, 1e-9)
	require.InDelta(t, 200.0, state.Allocations.ActivitiesBuffer, 1e-9)
	require.Equal(t, 1, metrics.sources[planSourceFallback])
}

func TestFallbackPlanCapsInterestSearches(t *testing.T) {
	req := testRequest()
	req.Interests = []string{"food", "music", "art", "hiking", "shopping"}

	steps, _ := FallbackPlan(req)

	require.Len(t, steps, 7)
	searches := 0
	for _, step := range steps {
		if step.Tool == domain.ToolSearchPlaces {
			searches++
			require.Equal(t, req.Destination, step.Params.Near)
			require.Equal(t, 10, step.Params.Limit)
		}
	}
	require.Equal(t, 3, searches)
	require.Equal(t, 200.0, steps[1].Params.MaxPrice)
	require.Equal(t, 5, steps[1].Params.Limit)
	require.Equal(t, domain.ToolSynthesis, steps[len(steps)-1].Tool)
}

func TestFallbackPlanWithoutInterestsStillEndsWithSynthesis(t *testing.T) {
	req := testRequest()
	req.Interests = nil

	steps, _ := FallbackPlan(req)

	require.Len(t, steps, 4)
	require.Equal(t, domain.PhaseTransport, steps[0].Phase)
	require.Equal(t, domain.PhaseSynthesis, steps[3].Phase)
	require.Empty(t, planIssues(steps))
}

func TestAllocateBudgetLargeBudgetUsesTwentyPercentTransport(t *testing.T) {
	alloc := domain.AllocateBudget(5000)
	require.InDelta(t, 800.0, alloc.Transport, 1e-9)

	alloc = domain.AllocateBudget(3000)
	require.InDelta(t, 600.0, alloc.Transport, 1e-9)
	require.InDelta(t, 1440.0, alloc.LodgingTarget, 1e-9)
	require.InDelta(t, 600.0, alloc.ActivitiesBuffer, 1e-9)
}

const generatedPlanJSON = `Here is the plan:
{
  "steps": [
    {"phase": "transport", "description": "Drive", "tool": "Google Maps", "params": {"origin": "Houston", "destination": "Paris"}},
    {"phase": "lodging", "description": "Hotels", "tool": "hotels.search", "params": {"city": "Paris", "start_date": "2030-01-01", "end_date": "2030-01-05", "max_price": 150, "limit": 3}},
    {"phase": "activities", "description": "Weather", "tool": "weather", "params": {"city": "Paris"}},
    {"phase": "activities", "description": "Food", "tool": "yelp", "params": {"query": "bbq", "near": "Paris", "limit": 5}},
    {"phase": "synthesis", "description": "Wrap up", "tool": "synthesis.none", "params": {}}
  ],
  "allocations": {"transport": 40, "lodging_target": 500, "activities_buffer": 200}
}
Enjoy!`

func TestCreatePlanRepairsToolsAndPinsRequestParams(t *testing.T) {
	metrics := newMetricsFake()
	generator := &generatorFake{raw: generatedPlanJSON}
	p := newTestPlanner(t, generator, metrics)
	req := testRequest()

	state := p.CreatePlan(context.Background(), req)

	require.Equal(t, 1, generator.calls)
	require.Contains(t, generator.prompt, "Dallas, TX")
	require.Equal(t, 1, metrics.sources[planSourceGenerated])
	require.Len(t, state.Plan, 5)

	require.Equal(t, domain.ToolFindDirections, state.Plan[0].Tool)
	require.Equal(t, "Austin, TX", state.Plan[0].Params.Origin)
	require.Equal(t, "Dallas, TX", state.Plan[0].Params.Destination)

	lodging := state.Plan[1].Params
	require.Equal(t, "Dallas, TX", lodging.City)
	require.Equal(t, "2025-06-01", lodging.StartDate)
	require.Equal(t, "2025-06-03", lodging.EndDate)
	require.Equal(t, 150.0, lodging.MaxPrice)

	require.Equal(t, domain.ToolForecastWeather, state.Plan[2].Tool)
	require.Equal(t, "Dallas, TX", state.Plan[2].Params.City)
	require.Equal(t, "2025-06-01", state.Plan[2].Params.StartDate)

	require.Equal(t, domain.ToolSearchPlaces, state.Plan[3].Tool)
	require.Equal(t, "Dallas, TX", state.Plan[3].Params.Near)
	require.Equal(t, "bbq", state.Plan[3].Params.Query)

	require.Equal(t, 40.0, state.Allocations.Transport)
}

func TestCreatePlanFallsBackOnBadGeneration(t *testing.T) {
	cases := []struct {
		name      string
		generator *generatorFake
	}{
		{name: "generator error", generator: &generatorFake{err: errors.New("connection refused")}},
		{name: "not json", generator: &generatorFake{raw: "I cannot plan this trip"}},
		{name: "unknown tool", generator: &generatorFake{raw: strings.Replace(generatedPlanJSON, `"yelp"`, `"teleporter"`, 1)}},
		{name: "missing synthesis", generator: &generatorFake{raw: `{"steps":[
			{"phase":"transport","description":"d","tool":"maps.find_directions","params":{}},
			{"phase":"lodging","description":"h","tool":"hotels.search","params":{}},
			{"phase":"activities","description":"p","tool":"places.search","params":{"query":"food"}}]}`}},
		{name: "schema violation", generator: &generatorFake{raw: `{"steps":[{"phase":"transport","tool":"maps.find_directions","params":{}}]}`}},
		{name: "transport not first", generator: &generatorFake{raw: `{"steps":[
			{"phase":"lodging","description":"h","tool":"hotels.search","params":{}},
			{"phase":"transport","description":"d","tool":"maps.find_directions","params":{}},
			{"phase":"activities","description":"p","tool":"places.search","params":{"query":"food"}},
			{"phase":"synthesis","description":"s","tool":"synthesis.none","params":{}}]}`}},
	}

	req := testRequest()
	want, _ := FallbackPlan(req)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := newMetricsFake()
			p := newTestPlanner(t, tc.generator, metrics)

			state := p.CreatePlan(context.Background(), req)

			require.Equal(t, want, state.Plan)
			require.Equal(t, 1, metrics.sources[planSourceFallback])
		})
	}
}

func TestFallbackReasonClassifiesErrors(t *testing.T) {
	require.Equal(t, "no_generator", fallbackReason(errNoGenerator))
	require.Equal(t, "unknown_tool", fallbackReason(domain.WrapError(domain.ErrUnknownTool, "repair", errors.New("x"))))
	require.Equal(t, "plan_rejected", fallbackReason(domain.WrapError(domain.ErrPlanRejected, "check", errors.New("x"))))
	require.Equal(t, "timeout", fallbackReason(context.DeadlineExceeded))
	require.Equal(t, "generator_error", fallbackReason(errors.New("boom")))
}

func TestUpdatePlanBudgetInsertsPlanBAfterLodging(t *testing.T) {
	metrics := newMetricsFake()
	p := newTestPlanner(t, nil, metrics)
	req := testRequest()
	steps, alloc := FallbackPlan(req)
	state := domain.NewAgentState(req.BudgetTotal, steps, &alloc)

	changed, err := p.UpdatePlanWithConstraints(state, 1, domain.ConstraintBudget, ConstraintDetails{
		City:             req.Destination,
		StartDate:        "2025-06-01",
		EndDate:          "2025-06-03",
		OriginalMaxPrice: 200,
		RemainingBudget:  450,
		Nights:           2,
	})

	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, state.Plan, len(steps)+1)
	planB := state.Plan[2]
	require.Equal(t, domain.ToolLodgingPlanB, planB.Tool)
	require.Equal(t, domain.ConstraintBudget, planB.Mitigates)
	require.InDelta(t, 160.0, planB.Params.MaxPrice, 1e-9)
	require.NotNil(t, planB.Params.RemainingBudget)
	require.Equal(t, 450.0, *planB.Params.RemainingBudget)
	require.Equal(t, domain.ToolForecastWeather, state.Plan[3].Tool)

	changed, err = p.UpdatePlanWithConstraints(state, 1, domain.ConstraintBudget, ConstraintDetails{RemainingBudget: 450, Nights: 2})
	require.NoError(t, err)
	require.False(t, changed)
	require.Len(t, state.Plan, len(steps)+1)
	require.Equal(t, 1, metrics.replans[string(domain.ConstraintBudget)])
}

func TestUpdatePlanRejectsInsertionBehindCursor(t *testing.T) {
	p := newTestPlanner(t, nil, nil)
	steps, alloc := FallbackPlan(testRequest())
	state := domain.NewAgentState(1000, steps, &alloc)

	changed, err := p.UpdatePlanWithConstraints(state, 3, domain.ConstraintBudget, ConstraintDetails{RemainingBudget: 80, Nights: 2})

	require.False(t, changed)
	require.ErrorIs(t, err, errInsertBehindCursor)
	require.Equal(t, steps, state.Plan)
}

func TestUpdatePlanWeatherRequiresRain(t *testing.T) {
	p := newTestPlanner(t, nil, nil)
	req := testRequest()
	steps, alloc := FallbackPlan(req)
	state := domain.NewAgentState(1000, steps, &alloc)

	changed, err := p.UpdatePlanWithConstraints(state, 2, domain.ConstraintWeather, ConstraintDetails{City: req.Destination, RainChance: 0.5})
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = p.UpdatePlanWithConstraints(state, 2, domain.ConstraintWeather, ConstraintDetails{City: req.Destination, RainChance: 0.7})
	require.NoError(t, err)
	require.True(t, changed)
	indoor := state.Plan[3]
	require.Equal(t, domain.ToolSearchPlaces, indoor.Tool)
	require.Equal(t, indoorQuery, indoor.Params.Query)
	require.Equal(t, 8, indoor.Params.Limit)
	require.Equal(t, req.Destination, indoor.Params.Near)

	changed, err = p.UpdatePlanWithConstraints(state, 2, domain.ConstraintWeather, ConstraintDetails{City: req.Destination, RainChance: 0.9})
	require.NoError(t, err)
	require.False(t, changed)
}

func TestUpdatePlanGeoAppendsOnce(t *testing.T) {
	p := newTestPlanner(t, nil, nil)
	steps, alloc := FallbackPlan(testRequest())
	state := domain.NewAgentState(1000, steps, &alloc)
	center := domain.GeoPoint{Lat: 32.77, Lng: -96.79}

	changed, err := p.UpdatePlanWithConstraints(state, 1, domain.ConstraintGeo, ConstraintDetails{Center: &center})
	require.NoError(t, err)
	require.True(t, changed)
	last := state.Plan[len(state.Plan)-1]
	require.Equal(t, domain.ToolFilterByLocation, last.Tool)
	require.Equal(t, 3.0, last.Params.MaxDistanceMiles)

	changed, err = p.UpdatePlanWithConstraints(state, 1, domain.ConstraintGeo, ConstraintDetails{Center: &center})
	require.NoError(t, err)
	require.False(t, changed)
}

func TestValidatePlanReportsIssues(t *testing.T) {
	state := domain.NewAgentState(1000, []domain.PlanStep{
		{Phase: domain.PhaseLodging, Tool: domain.ToolSearchLodging},
		{Phase: domain.PhaseSynthesis, Tool: domain.ToolSynthesis},
		{Phase: domain.PhaseLodging, Tool: domain.ToolSearchLodging},
	}, &domain.BudgetAllocation{Transport: 500, LodgingTarget: 500, ActivitiesBuffer: 300})

	issues := ValidatePlan(state)

	require.Equal(t, []string{
		"Missing required phases: activities, transport",
		"Plan should start with transport phase",
		"Synthesis should be the final phase",
		"Budget allocation exceeds available budget",
	}, issues)
}

func TestEstimatePlanDuration(t *testing.T) {
	steps, _ := FallbackPlan(testRequest())
	// directions 2 + hotels 3 + weather 1 + places 2*2 + synthesis 5
	require.Equal(t, 15, EstimatePlanDuration(steps))
}

func TestFallbackPlanPropertiesHold(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("fallback plan is deterministic and complete", prop.ForAll(
		func(interests []string, budget float64) bool {
			req := testRequest()
			req.Interests = interests
			req.BudgetTotal = budget

			first, allocA := FallbackPlan(req)
			second, allocB := FallbackPlan(req)
			if !reflect.DeepEqual(first, second) || allocA != allocB {
				return false
			}
			if len(first) != 4+min(len(interests), maxInterestSearches) {
				return false
			}
			return len(planIssues(first)) == 0 &&
				first[0].Tool == domain.ToolFindDirections &&
				first[len(first)-1].Tool == domain.ToolSynthesis
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Float64Range(0, 20000),
	))

	properties.TestingRun(t)
}
