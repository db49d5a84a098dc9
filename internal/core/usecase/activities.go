package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

const (
	DefaultMaxActivities = 6

	activityReserve       = 50.0
	proximityRadiusMiles  = 5.0
	defaultActivityPrice  = 15.0
	defaultPlaceRating    = 4.0
	maxIndoorPicks        = 4
	maxRainBackups        = 2
	maxMultiInterestPicks = 3
	placeholderOffset     = 0.005
)

var indoorTags = map[string]bool{
	"indoor":     true,
	"museum":     true,
	"coffee":     true,
	"restaurant": true,
	"bar":        true,
}

var freeKeywords = []string{"park", "trail", "beach", "plaza", "square", "bridge", "viewpoint", "monument"}

// ActivitySelector turns collected points of interest into the final activity list.
type ActivitySelector struct {
	maxActivities int
	logger        *slog.Logger
}

func NewActivitySelector(maxActivities int, logger *slog.Logger) *ActivitySelector {
	if maxActivities <= 0 {
		maxActivities = DefaultMaxActivities
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivitySelector{maxActivities: maxActivities, logger: logger}
}

func (s *ActivitySelector) SelectActivities(state *domain.AgentState, interests []string, destinationCity string) *domain.AgentState {
	candidates := collectPlaces(state.Log)
	placeholders := false
	if len(candidates) == 0 {
		candidates = s.placeholderPlaces(state, interests, destinationCity)
		placeholders = true
	}
	candidates = dedupePlaces(candidates)

	multi := overlappingInterests(candidates, interests)

	nearby := candidates
	proximity := false
	if hotel := state.Selections.Hotel; hotel != nil {
		nearby = placesWithin(candidates, hotel.Point(), proximityRadiusMiles)
		proximity = true
	}
	nearbyKeys := placeKeys(nearby)
	multiNearby := make([]domain.Place, 0, len(multi))
	for _, place := range multi {
		if nearbyKeys[place.Key()] {
			multiNearby = append(multiNearby, place)
		}
	}

	var ranked []domain.Place
	if forecast, ok := state.LatestForecast(); ok && forecast.Rainy() {
		ranked = s.rainyDayPicks(state, nearby, forecast)
	} else {
		ranked = fairWeatherPicks(nearby, multiNearby, s.maxActivities)
	}

	activities, total := s.commitWithinBudget(state, ranked)

	var credit float64
	for _, prev := range state.Selections.Activities {
		credit += prev.Price * float64(state.Travelers())
	}
	state.Selections.Activities = activities

	multiKeys := placeKeys(multiNearby)
	multiCount := 0
	names := make([]string, 0, len(activities))
	for _, activity := range activities {
		names = append(names, activity.Name)
		if multiKeys[activityKey(activity)] {
			multiCount++
		}
	}

	notes := fmt.Sprintf("Selected %d activities for $%.2f total", len(activities), total)
	if len(activities) == 0 {
		notes = fmt.Sprintf("No activities selected (budget: $%.2f, found %d places)", activityBudget(state.BudgetRemaining), len(ranked))
	} else if multiCount > 0 {
		notes += fmt.Sprintf(" (including %d multi-interest matches)", multiCount)
	}
	if proximity && len(activities) > 0 {
		notes += fmt.Sprintf("; kept nearby places within %.0f miles of the hotel", proximityRadiusMiles)
	}

	state.Record(domain.ToolResult{
		Tool: domain.ToolSelectActivities,
		Output: domain.ToolOutput{
			Status: domain.StatusSuccess,
			Summary: map[string]any{
				"selected":       len(activities),
				"total_cost":     total,
				"activities":     names,
				"multi_interest": multiCount,
				"proximity":      proximity,
				"placeholders":   placeholders,
			},
		},
		CostEstimate: total,
		Credit:       credit,
		Notes:        notes,
	})

	s.logger.Info("activities_selected",
		"count", len(activities),
		"total_cost", total,
		"multi_interest", multiCount,
		"placeholders", placeholders,
		"budget_remaining", state.BudgetRemaining,
	)
	return state
}

func (s *ActivitySelector) rainyDayPicks(state *domain.AgentState, nearby []domain.Place, forecast domain.Forecast) []domain.Place {
	indoor := make([]domain.Place, 0)
	for _, place := range nearby {
		if hasIndoorTag(place) {
			indoor = append(indoor, place)
		}
	}

	picks := append([]domain.Place{}, indoor[:min(len(indoor), maxIndoorPicks)]...)
	picked := placeKeys(picks)
	backups := make([]domain.Place, 0)
	for _, place := range nearby {
		if !picked[place.Key()] {
			backups = append(backups, place)
		}
	}
	picks = append(picks, backups[:min(len(backups), maxRainBackups)]...)

	state.Record(domain.ToolResult{
		Tool: domain.ToolWeatherReplan,
		Output: domain.ToolOutput{
			Status: domain.StatusSuccess,
			Summary: map[string]any{
				"rain_chance":     forecast.RainChance,
				"indoor_selected": len(indoor),
				"outdoor_backup":  len(backups),
			},
		},
		Notes: fmt.Sprintf("Weather re-plan: Selected %d indoor activities due to %.0f%% rain chance", len(indoor), forecast.RainChance*100),
	})
	return picks
}

func fairWeatherPicks(nearby, multi []domain.Place, maxActivities int) []domain.Place {
	picks := append([]domain.Place{}, multi[:min(len(multi), maxMultiInterestPicks)]...)
	picked := placeKeys(picks)

	rest := make([]domain.Place, 0, len(nearby))
	for _, place := range nearby {
		if !picked[place.Key()] {
			rest = append(rest, place)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return placeRating(rest[i]) > placeRating(rest[j]) })

	if room := maxActivities - len(picks); room > 0 {
		picks = append(picks, rest[:min(len(rest), room)]...)
	}
	return picks
}

type pricedPlace struct {
	place domain.Place
	price float64
}

// commitWithinBudget adds free places first, then paid places that fit the
// activity budget, then any remaining free places.
func (s *ActivitySelector) commitWithinBudget(state *domain.AgentState, ranked []domain.Place) ([]domain.ActivitySelection, float64) {
	budget := activityBudget(state.BudgetRemaining)
	travelers := float64(state.Travelers())

	considered := ranked[:min(len(ranked), s.maxActivities*2)]
	free := make([]pricedPlace, 0)
	paid := make([]pricedPlace, 0)
	for _, place := range considered {
		price := ResolvePrice(place)
		if price == 0 {
			free = append(free, pricedPlace{place: place, price: 0})
			continue
		}
		paid = append(paid, pricedPlace{place: place, price: price})
	}

	out := make([]domain.ActivitySelection, 0, s.maxActivities)
	added := make(map[string]bool)
	for _, item := range free[:min(len(free), s.maxActivities)] {
		out = append(out, toActivity(item))
		added[item.place.Key()] = true
	}

	var total float64
	for _, item := range paid {
		if len(out) >= s.maxActivities {
			break
		}
		cost := item.price * travelers
		if total+cost > budget {
			continue
		}
		out = append(out, toActivity(item))
		added[item.place.Key()] = true
		total += cost
	}

	for _, item := range free {
		if len(out) >= s.maxActivities {
			break
		}
		if added[item.place.Key()] {
			continue
		}
		out = append(out, toActivity(item))
		added[item.place.Key()] = true
	}
	return out, total
}

func activityBudget(remaining float64) float64 {
	return math.Max(0, remaining-activityReserve)
}

// ResolvePrice returns the per-person price, inferring free places by keyword
// and coercing unusable values to the default.
func ResolvePrice(place domain.Place) float64 {
	if place.Price == nil {
		if looksFree(place) {
			return 0
		}
		return defaultActivityPrice
	}
	price := *place.Price
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return defaultActivityPrice
	}
	return price
}

func looksFree(place domain.Place) bool {
	name := strings.ToLower(place.Name)
	tags := strings.ToLower(strings.Join(place.Tags, " "))
	for _, keyword := range freeKeywords {
		if strings.Contains(name, keyword) || strings.Contains(tags, keyword) {
			return true
		}
	}
	return false
}

func hasIndoorTag(place domain.Place) bool {
	for _, tag := range place.Tags {
		if indoorTags[strings.ToLower(tag)] {
			return true
		}
	}
	return false
}

func toActivity(item pricedPlace) domain.ActivitySelection {
	tags := item.place.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.ActivitySelection{
		Name:    item.place.Name,
		Tags:    tags,
		Rating:  placeRating(item.place),
		Price:   item.price,
		Lat:     item.place.Lat,
		Lng:     item.place.Lng,
		PlaceID: item.place.PlaceID,
		Link:    item.place.Link,
		Address: item.place.Address,
	}
}

func placeRating(place domain.Place) float64 {
	if place.Rating <= 0 {
		return defaultPlaceRating
	}
	return place.Rating
}

func activityKey(a domain.ActivitySelection) string {
	if a.PlaceID != "" {
		return a.PlaceID
	}
	return a.Name
}

func collectPlaces(log []domain.ToolResult) []domain.Place {
	out := make([]domain.Place, 0)
	for _, entry := range log {
		if entry.Tool == domain.ToolSearchPlaces {
			out = append(out, entry.Output.Places...)
		}
	}
	return out
}

func dedupePlaces(places []domain.Place) []domain.Place {
	seen := make(map[string]bool, len(places))
	out := make([]domain.Place, 0, len(places))
	for _, place := range places {
		key := place.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, place)
	}
	return out
}

func placeKeys(places []domain.Place) map[string]bool {
	keys := make(map[string]bool, len(places))
	for _, place := range places {
		keys[place.Key()] = true
	}
	return keys
}

// overlappingInterests returns places matching two or more interests, most matches first.
func overlappingInterests(places []domain.Place, interests []string) []domain.Place {
	type match struct {
		place domain.Place
		count int
	}
	matches := make([]match, 0)
	for _, place := range places {
		name := strings.ToLower(place.Name)
		count := 0
		for _, interest := range interests {
			needle := strings.ToLower(strings.TrimSpace(interest))
			if needle == "" {
				continue
			}
			if strings.Contains(name, needle) || tagContains(place.Tags, needle) {
				count++
			}
		}
		if count >= 2 {
			matches = append(matches, match{place: place, count: count})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].count > matches[j].count })

	out := make([]domain.Place, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.place)
	}
	return out
}

func tagContains(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// placesWithin keeps places inside radius of center, nearest first.
func placesWithin(places []domain.Place, center domain.GeoPoint, radius float64) []domain.Place {
	type ranked struct {
		place    domain.Place
		distance float64
	}
	nearby := make([]ranked, 0, len(places))
	for _, place := range places {
		d := domain.DistanceMiles(center, domain.GeoPoint{Lat: place.Lat, Lng: place.Lng})
		if d <= radius {
			nearby = append(nearby, ranked{place: place, distance: math.Round(d*10) / 10})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].distance < nearby[j].distance })

	out := make([]domain.Place, 0, len(nearby))
	for _, item := range nearby {
		out = append(out, item.place)
	}
	return out
}

func (s *ActivitySelector) placeholderPlaces(state *domain.AgentState, interests []string, destinationCity string) []domain.Place {
	city := resolveDestinationCity(state, destinationCity)
	base := domain.GeocodeCity(city)
	if hotel := state.Selections.Hotel; hotel != nil {
		base = hotel.Point()
	}
	address := "Various locations in " + city
	title := cases.Title(language.English)

	out := make([]domain.Place, 0, len(interests))
	for i, interest := range interests {
		if i == s.maxActivities {
			break
		}
		price := defaultActivityPrice
		offset := float64(i) * placeholderOffset
		out = append(out, domain.Place{
			Name:    fmt.Sprintf("%s Venue in %s", title.String(interest), city),
			Tags:    []string{strings.ToLower(interest), "attraction"},
			Rating:  defaultPlaceRating,
			Price:   &price,
			Lat:     base.Lat + offset,
			Lng:     base.Lng + offset,
			PlaceID: fmt.Sprintf("generic_%s_%d", interest, i),
			Address: address,
		})
	}
	if len(out) > 0 {
		s.logger.Warn("activities_placeholders", "count", len(out), "city", city)
		return out
	}

	attractionPrice, diningPrice := 20.0, 25.0
	return []domain.Place{
		{
			Name:    "Local Attractions in " + city,
			Tags:    []string{"attraction", "sightseeing"},
			Rating:  defaultPlaceRating,
			Price:   &attractionPrice,
			Lat:     base.Lat + 0.01,
			Lng:     base.Lng + 0.01,
			PlaceID: "generic_attraction_1",
			Address: address,
		},
		{
			Name:    "Restaurants in " + city,
			Tags:    []string{"restaurant", "dining"},
			Rating:  defaultPlaceRating,
			Price:   &diningPrice,
			Lat:     base.Lat - 0.01,
			Lng:     base.Lng - 0.01,
			PlaceID: "generic_restaurant_1",
			Address: address,
		},
	}
}

func resolveDestinationCity(state *domain.AgentState, destinationCity string) string {
	if city := strings.TrimSpace(destinationCity); city != "" {
		return city
	}
	for _, entry := range state.Log {
		if entry.Tool == domain.ToolSearchPlaces && strings.TrimSpace(entry.Input.Near) != "" {
			return entry.Input.Near
		}
	}
	if hotel := state.Selections.Hotel; hotel != nil && hotel.Address != "" {
		parts := strings.Split(hotel.Address, ",")
		if len(parts) >= 2 {
			return strings.TrimSpace(parts[len(parts)-2])
		}
	}
	return "the destination"
}
