package domain

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type RouteResult struct {
	Status          string  `json:"status"`
	Error           string  `json:"error,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	DistanceMiles   float64 `json:"distance_miles"`
	GasEstimate     float64 `json:"gas_estimate"`
	Polyline        string  `json:"polyline,omitempty"`
}

type LodgingOption struct {
	Name          string  `json:"name"`
	PricePerNight float64 `json:"price_per_night"`
	TotalPrice    float64 `json:"total_price"`
	Rating        float64 `json:"rating"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Link          string  `json:"link,omitempty"`
	Address       string  `json:"address,omitempty"`
	PlaceID       string  `json:"place_id,omitempty"`
}

type Forecast struct {
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Summary    string  `json:"summary"`
	HighF      int     `json:"high_f"`
	LowF       int     `json:"low_f"`
	RainChance float64 `json:"rain_chance"`
}

func (f Forecast) Rainy() bool {
	return f.RainChance > RainThreshold
}

const RainThreshold = 0.5

type Place struct {
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
	Rating  float64  `json:"rating,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	PlaceID string   `json:"place_id,omitempty"`
	Link    string   `json:"link,omitempty"`
	Address string   `json:"address,omitempty"`
}

// Key identifies a place for deduplication.
func (p Place) Key() string {
	if p.PlaceID != "" {
		return p.PlaceID
	}
	return p.Name
}

// ToolOutput is the raw payload of one dispatched step. Exactly one of the
// typed payloads is set on success; Error carries the failure otherwise.
type ToolOutput struct {
	Route    *RouteResult    `json:"route,omitempty"`
	Lodging  []LodgingOption `json:"lodging,omitempty"`
	PlanB    bool            `json:"plan_b,omitempty"`
	Forecast *Forecast       `json:"forecast,omitempty"`
	Places   []Place         `json:"places,omitempty"`
	Status   string          `json:"status,omitempty"`
	Error    string          `json:"error,omitempty"`
	Summary  map[string]any  `json:"summary,omitempty"`
}

func (o ToolOutput) Failed() bool {
	return o.Status == StatusError
}

// ToolResult is an immutable log entry for one executed step.
type ToolResult struct {
	Tool   ToolID     `json:"tool"`
	Input  StepParams `json:"input"`
	Output ToolOutput `json:"output"`
	// CostEstimate is the gross amount debited by this entry.
	CostEstimate float64 `json:"cost_estimate"`
	// Credit is the amount returned to the budget when this entry replaced
	// an earlier selection of the same kind.
	Credit   float64 `json:"credit,omitempty"`
	Notes    string  `json:"notes"`
	Thinking string  `json:"thinking,omitempty"`
}

// NetCost is the entry's contribution to committed spend.
func (r ToolResult) NetCost() float64 {
	return r.CostEstimate - r.Credit
}
