package domain

import "math"

type Phase string

const (
	PhaseTransport  Phase = "transport"
	PhaseLodging    Phase = "lodging"
	PhaseActivities Phase = "activities"
	PhaseSynthesis  Phase = "synthesis"
)

// ToolID keys a plan step into the executor dispatch table.
type ToolID string

const (
	ToolFindDirections   ToolID = "maps.find_directions"
	ToolSearchLodging    ToolID = "hotels.search"
	ToolLodgingPlanB     ToolID = "hotels.find_plan_b"
	ToolForecastWeather  ToolID = "weather.forecast"
	ToolSearchPlaces     ToolID = "places.search"
	ToolSynthesis        ToolID = "synthesis.none"
	ToolFilterByLocation ToolID = "places.filter_by_location"

	// Log-only entries written outside of plan dispatch.
	ToolWeatherReplan    ToolID = "weather.replan"
	ToolSelectActivities ToolID = "activities.select"
)

// PlannableTools is the closed set a plan may reference before mutation.
var PlannableTools = []ToolID{
	ToolFindDirections,
	ToolSearchLodging,
	ToolLodgingPlanB,
	ToolForecastWeather,
	ToolSearchPlaces,
	ToolSynthesis,
}

func (t ToolID) Plannable() bool {
	for _, id := range PlannableTools {
		if id == t {
			return true
		}
	}
	return false
}

func (t ToolID) IsLodging() bool {
	return t == ToolSearchLodging || t == ToolLodgingPlanB
}

type ConstraintKind string

const (
	ConstraintBudget  ConstraintKind = "budget"
	ConstraintWeather ConstraintKind = "weather"
	ConstraintGeo     ConstraintKind = "geo"
)

// StepParams is the union of tool parameters. Each tool reads only its own fields.
type StepParams struct {
	Origin           string   `json:"origin,omitempty"`
	Destination      string   `json:"destination,omitempty"`
	City             string   `json:"city,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	MaxPrice         float64  `json:"max_price,omitempty"`
	OriginalMaxPrice float64  `json:"original_max_price,omitempty"`
	RemainingBudget  *float64 `json:"remaining_budget,omitempty"`
	Near             string   `json:"near,omitempty"`
	Query            string   `json:"query,omitempty"`
	Limit            int      `json:"limit,omitempty"`
	CenterLat        *float64 `json:"center_lat,omitempty"`
	CenterLng        *float64 `json:"center_lng,omitempty"`
	MaxDistanceMiles float64  `json:"max_distance_miles,omitempty"`
}

type PlanStep struct {
	Phase       Phase      `json:"phase"`
	Description string     `json:"description"`
	Tool        ToolID     `json:"tool"`
	Params      StepParams `json:"params"`
	// Mitigates marks steps inserted by a constraint so the same constraint
	// is not mitigated twice at the same position.
	Mitigates ConstraintKind `json:"mitigates,omitempty"`
}

// BudgetAllocation is advisory only; spend is enforced against AgentState.BudgetRemaining.
type BudgetAllocation struct {
	Transport        float64 `json:"transport"`
	LodgingTarget    float64 `json:"lodging_target"`
	ActivitiesBuffer float64 `json:"activities_buffer"`
}

const (
	DefaultLodgingMaxPrice = 200.0
	MinViableNightlyPrice  = 40.0
	PlanBBudgetBuffer      = 50.0
)

// AllocateBudget computes the advisory split for a total budget.
func AllocateBudget(total float64) BudgetAllocation {
	transport := math.Min(50, total*0.1)
	if total > 2000 {
		transport = math.Min(800, total*0.2)
	}
	return BudgetAllocation{
		Transport:        transport,
		LodgingTarget:    (total - transport) * 0.6,
		ActivitiesBuffer: math.Max(150, total*0.2),
	}
}

// PlanBNightlyCap is the reduced nightly ceiling for a fallback lodging search.
func PlanBNightlyCap(originalMaxPrice, remainingBudget float64, nights int) float64 {
	if originalMaxPrice <= 0 {
		originalMaxPrice = DefaultLodgingMaxPrice
	}
	nights = max(1, nights)
	byBudget := (remainingBudget - PlanBBudgetBuffer) / float64(nights)
	return math.Max(MinViableNightlyPrice, math.Min(originalMaxPrice*0.8, byBudget))
}
