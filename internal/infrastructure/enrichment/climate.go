package enrichment

import (
	"fmt"
	"strings"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// climateZones is checked in order; the first zone whose keyword appears in the
// destination wins.
var climateZones = []struct {
	zone     string
	keywords []string
}{
	{"tropical", []string{"miami", "key west", "honolulu", "hawaii", "puerto rico"}},
	{"desert", []string{"phoenix", "las vegas", "tucson", "palm springs"}},
	{"west_coast", []string{"los angeles", "san francisco", "san diego", "seattle", "portland", "sacramento", "california", "oregon"}},
	{"southern", []string{"austin", "houston", "dallas", "san antonio", "atlanta", "orlando", "tampa", "nashville", "new orleans", "texas", ", tx", "florida", "georgia"}},
	{"mountain", []string{"denver", "salt lake city", "boise", "colorado", "utah", "montana"}},
	{"northern", []string{"chicago", "boston", "minneapolis", "detroit", "milwaukee", "cleveland", "pittsburgh"}},
	{"coastal_east", []string{"new york", "philadelphia", "baltimore", "washington", "new jersey"}},
}

type conditions struct {
	Summary    string
	HighF      int
	LowF       int
	RainChance float64
}

func (c conditions) String() string {
	return fmt.Sprintf("%s, highs %dF, lows %dF, %d%% chance of rain",
		c.Summary, c.HighF, c.LowF, int(c.RainChance*100+0.5))
}

func (c conditions) rainy() bool {
	return c.RainChance > domain.RainThreshold
}

// seasonProfiles holds typical weather per climate zone when no forecast exists.
var seasonProfiles = map[string]map[string]conditions{
	"tropical": {
		"winter": {"Warm Winter", 82, 68, 0.25},
		"spring": {"Warm Spring", 85, 72, 0.30},
		"summer": {"Hot & Humid Summer", 88, 78, 0.40},
		"fall":   {"Warm Fall", 84, 70, 0.35},
	},
	"desert": {
		"winter": {"Mild Winter", 68, 45, 0.15},
		"spring": {"Warm Spring", 85, 60, 0.10},
		"summer": {"Very Hot Summer", 105, 80, 0.20},
		"fall":   {"Warm Fall", 88, 65, 0.15},
	},
	"west_coast": {
		"winter": {"Mild & Rainy Winter", 68, 52, 0.35},
		"spring": {"Mild Spring", 72, 56, 0.30},
		"summer": {"Warm & Dry Summer", 78, 62, 0.05},
		"fall":   {"Warm Fall", 75, 60, 0.15},
	},
	"southern": {
		"winter": {"Mild Winter", 65, 45, 0.30},
		"spring": {"Warm & Rainy Spring", 78, 58, 0.40},
		"summer": {"Hot & Humid Summer", 92, 72, 0.35},
		"fall":   {"Warm Fall", 80, 60, 0.25},
	},
	"northern": {
		"winter": {"Cold Winter", 32, 18, 0.35},
		"spring": {"Cool & Rainy Spring", 58, 40, 0.45},
		"summer": {"Moderate Summer", 82, 62, 0.30},
		"fall":   {"Cool Fall", 62, 42, 0.40},
	},
	"coastal_east": {
		"winter": {"Cold & Wet Winter", 42, 28, 0.40},
		"spring": {"Cool Spring", 62, 46, 0.42},
		"summer": {"Warm & Humid Summer", 83, 66, 0.35},
		"fall":   {"Cool Fall", 62, 46, 0.40},
	},
	"mountain": {
		"winter": {"Cold Winter", 40, 20, 0.30},
		"spring": {"Cool Spring", 60, 38, 0.35},
		"summer": {"Warm Days, Cool Nights", 82, 55, 0.25},
		"fall":   {"Cool Fall", 65, 40, 0.30},
	},
	"moderate": {
		"winter": {"Moderate Winter", 50, 35, 0.35},
		"spring": {"Mild Spring", 68, 50, 0.42},
		"summer": {"Warm Summer", 85, 68, 0.28},
		"fall":   {"Mild Fall", 72, 52, 0.32},
	},
}

func climateZone(destination string) string {
	lowered := strings.ToLower(destination)
	for _, candidate := range climateZones {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lowered, keyword) {
				return candidate.zone
			}
		}
	}
	return "moderate"
}

func normalizeSeason(season string) string {
	switch strings.ToLower(strings.TrimSpace(season)) {
	case "winter":
		return "winter"
	case "spring":
		return "spring"
	case "summer":
		return "summer"
	default:
		return "fall"
	}
}

// expectedConditions prefers the live forecast and falls back to the seasonal
// profile of the destination's climate zone.
func expectedConditions(destination, season string, forecast *domain.Forecast) conditions {
	if forecast != nil && forecast.Status != domain.StatusError {
		return conditions{
			Summary:    forecast.Summary,
			HighF:      forecast.HighF,
			LowF:       forecast.LowF,
			RainChance: forecast.RainChance,
		}
	}
	return seasonProfiles[climateZone(destination)][normalizeSeason(season)]
}
