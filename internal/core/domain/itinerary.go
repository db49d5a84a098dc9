package domain

type ItineraryItem struct {
	Day     Date    `json:"day"`
	Time    string  `json:"time"`
	Title   string  `json:"title"`
	PlaceID string  `json:"place_id,omitempty"`
	Address string  `json:"address,omitempty"`
	Link    string  `json:"link,omitempty"`
	EstCost float64 `json:"est_cost"`
	Notes   string  `json:"notes,omitempty"`
}

type BudgetBreakdown struct {
	Transport  float64 `json:"transport"`
	Lodging    float64 `json:"lodging"`
	Activities float64 `json:"activities"`
	TotalSpent float64 `json:"total_spent"`
	Remaining  float64 `json:"remaining"`
}

type MapPointKind string

const (
	MapPointHotel    MapPointKind = "hotel"
	MapPointActivity MapPointKind = "activity"
)

type MapPoint struct {
	Name string       `json:"name"`
	Lat  float64      `json:"lat"`
	Lng  float64      `json:"lng"`
	Link string       `json:"link,omitempty"`
	Type MapPointKind `json:"type"`
}

type CalendarEvent struct {
	Summary     string `json:"summary"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type ClothingAdvice struct {
	Season     string   `json:"season"`
	Conditions string   `json:"conditions"`
	Items      []string `json:"items"`
	Palette    []string `json:"palette"`
	Source     string   `json:"source"`
}

type SongRecommendation struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

type MusicAdvice struct {
	Playlist []SongRecommendation `json:"playlist"`
	Source   string               `json:"source"`
}

type CityHistory struct {
	City    string   `json:"city"`
	Summary string   `json:"summary"`
	Facts   []string `json:"facts"`
	Source  string   `json:"source"`
}

// Enrichments are best-effort extras; any of them may be nil.
type Enrichments struct {
	Clothing *ClothingAdvice `json:"clothing,omitempty"`
	Music    *MusicAdvice    `json:"music,omitempty"`
	History  *CityHistory    `json:"history,omitempty"`
}

type Itinerary struct {
	Items           []ItineraryItem `json:"items"`
	BudgetBreakdown BudgetBreakdown `json:"budget_breakdown"`
	MapPoints       []MapPoint      `json:"map_points"`
	Rationales      []string        `json:"rationales"`
	AgentDecisions  []string        `json:"agent_decisions"`
	CalendarEvents  []CalendarEvent `json:"calendar_events"`
	Enrichments     Enrichments     `json:"enrichments"`
}
