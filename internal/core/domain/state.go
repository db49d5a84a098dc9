package domain

type TransportMode string

const (
	TransportDriving TransportMode = "driving"
	TransportFlying  TransportMode = "flying"
)

type TransportSelection struct {
	Mode            TransportMode `json:"mode"`
	Cost            float64       `json:"cost"`
	DurationMinutes int           `json:"duration_minutes"`
	DistanceMiles   float64       `json:"distance_miles"`
}

type HotelSelection struct {
	Name          string  `json:"name"`
	PricePerNight float64 `json:"price_per_night"`
	TotalPrice    float64 `json:"total_price"`
	Rating        float64 `json:"rating"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Link          string  `json:"link,omitempty"`
	Address       string  `json:"address,omitempty"`
	PlanB         bool    `json:"plan_b,omitempty"`
}

func (h HotelSelection) Point() GeoPoint {
	return GeoPoint{Lat: h.Lat, Lng: h.Lng}
}

type ActivitySelection struct {
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
	Rating  float64  `json:"rating"`
	Price   float64  `json:"price"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	PlaceID string   `json:"place_id,omitempty"`
	Link    string   `json:"link,omitempty"`
	Address string   `json:"address,omitempty"`
}

type Selections struct {
	Transport  *TransportSelection `json:"transport,omitempty"`
	Hotel      *HotelSelection     `json:"hotel,omitempty"`
	Activities []ActivitySelection `json:"activities"`
}

// AgentState is owned by a single planning run and mutated in place by the
// executor and the activity selector.
type AgentState struct {
	BudgetTotal     float64           `json:"budget_total"`
	BudgetRemaining float64           `json:"budget_remaining"`
	Plan            []PlanStep        `json:"plan"`
	Selections      Selections        `json:"selections"`
	Log             []ToolResult      `json:"log"`
	Allocations     *BudgetAllocation `json:"allocations,omitempty"`
	// CostTravelers multiplies per-person prices into totals.
	CostTravelers int `json:"cost_travelers"`
}

// DefaultCostTravelers is the party size used for per-person totals unless
// the request's traveler count is threaded through.
const DefaultCostTravelers = 2

func NewAgentState(budgetTotal float64, plan []PlanStep, allocations *BudgetAllocation) *AgentState {
	return &AgentState{
		BudgetTotal:     budgetTotal,
		BudgetRemaining: budgetTotal,
		Plan:            plan,
		Selections:      Selections{Activities: []ActivitySelection{}},
		Log:             []ToolResult{},
		Allocations:     allocations,
		CostTravelers:   DefaultCostTravelers,
	}
}

// Record appends a log entry and applies its net cost to the remaining budget.
// It is the only path through which the budget changes.
func (s *AgentState) Record(result ToolResult) {
	s.Log = append(s.Log, result)
	s.BudgetRemaining = s.BudgetTotal - s.CommittedSpend()
}

// CommittedSpend sums the net cost of every log entry.
func (s *AgentState) CommittedSpend() float64 {
	var total float64
	for _, entry := range s.Log {
		total += entry.NetCost()
	}
	return total
}

func (s *AgentState) Travelers() int {
	if s.CostTravelers <= 0 {
		return DefaultCostTravelers
	}
	return s.CostTravelers
}

// LatestForecast returns the most recent successful weather result.
func (s *AgentState) LatestForecast() (Forecast, bool) {
	for i := len(s.Log) - 1; i >= 0; i-- {
		entry := s.Log[i]
		forecast := entry.Output.Forecast
		if entry.Tool == ToolForecastWeather && forecast != nil && forecast.Status == StatusSuccess {
			return *forecast, true
		}
	}
	return Forecast{}, false
}
