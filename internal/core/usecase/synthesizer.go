package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

const (
	slotArrival   = "Arrival"
	slotCheckIn   = "Check-in"
	slotCheckOut  = "Check-out"
	slotDeparture = "Departure"
	slotFlexible  = "Flexible"

	activitiesPerDay = 3
)

type timeBlock struct {
	label string
	start string
	end   string
}

var dayBlocks = []timeBlock{
	{label: "9:00 AM - 12:00 PM", start: "09:00", end: "12:00"},
	{label: "1:00 PM - 4:00 PM", start: "13:00", end: "16:00"},
	{label: "6:00 PM - 9:00 PM", start: "18:00", end: "21:00"},
}

type SynthesizerOptions struct {
	Clothing      ports.ClothingAdvisor
	Music         ports.MusicAdvisor
	History       ports.HistoryWriter
	EnrichTimeout time.Duration
	Logger        *slog.Logger
}

// Synthesizer turns a finished AgentState into a presentable itinerary.
// It only reads the state.
type Synthesizer struct {
	clothing      ports.ClothingAdvisor
	music         ports.MusicAdvisor
	history       ports.HistoryWriter
	enrichTimeout time.Duration
	logger        *slog.Logger
}

func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synthesizer{
		clothing:      opts.Clothing,
		music:         opts.Music,
		history:       opts.History,
		enrichTimeout: opts.EnrichTimeout,
		logger:        opts.Logger,
	}
}

func (s *Synthesizer) CreateItinerary(ctx context.Context, state *domain.AgentState, req domain.UserRequest) *domain.Itinerary {
	itinerary := &domain.Itinerary{
		Items:           DailySchedule(state, req),
		BudgetBreakdown: BreakdownBudget(state, req.BudgetTotal),
		MapPoints:       MapPoints(state),
		Rationales:      Rationales(state),
		AgentDecisions:  AgentDecisions(state),
	}
	itinerary.CalendarEvents = CalendarEvents(itinerary.Items)
	itinerary.Enrichments = s.enrich(ctx, state, req)

	s.logger.Info("itinerary_created",
		"items", len(itinerary.Items),
		"map_points", len(itinerary.MapPoints),
		"total_spent", itinerary.BudgetBreakdown.TotalSpent,
		"remaining", itinerary.BudgetBreakdown.Remaining,
	)
	return itinerary
}

// DailySchedule lays out arrival, activities and departure for every day of the stay.
func DailySchedule(state *domain.AgentState, req domain.UserRequest) []domain.ItineraryItem {
	items := make([]domain.ItineraryItem, 0)
	transport := state.Selections.Transport
	hotel := state.Selections.Hotel
	activities := state.Selections.Activities
	next := 0

	for day := req.StartDate; !day.After(req.EndDate.Time); day = day.AddDays(1) {
		first := day.Equal(req.StartDate.Time)
		last := day.Equal(req.EndDate.Time)

		if first {
			items = append(items, arrivalItem(day, req, transport))
			if hotel != nil {
				items = append(items, domain.ItineraryItem{
					Day:     day,
					Time:    slotCheckIn,
					Title:   "Check into " + hotel.Name,
					Address: hotel.Address,
					Link:    hotel.Link,
					Notes:   fmt.Sprintf("Hotel for $%.2f/night", hotel.PricePerNight),
				})
			}
		}

		scheduled := 0
		for _, block := range dayBlocks {
			if next >= len(activities) || scheduled >= activitiesPerDay {
				break
			}
			items = append(items, activityItem(day, block.label, activities[next]))
			next++
			scheduled++
		}

		if scheduled == 0 && !first && !last {
			items = append(items, domain.ItineraryItem{
				Day:   day,
				Time:  slotFlexible,
				Title: "Free time to explore",
				Notes: "Explore the destination at your own pace",
			})
		}

		if last {
			if hotel != nil {
				items = append(items, domain.ItineraryItem{
					Day:   day,
					Time:  slotCheckOut,
					Title: "Check out of " + hotel.Name,
					Notes: "End of stay",
				})
			}
			items = append(items, domain.ItineraryItem{
				Day:   day,
				Time:  slotDeparture,
				Title: "Return to " + req.Origin,
				Notes: "Safe travels!",
			})
		}
	}

	for ; next < len(activities); next++ {
		activity := activities[next]
		items = append(items, domain.ItineraryItem{
			Day:     req.EndDate,
			Time:    slotFlexible,
			Title:   activity.Name,
			PlaceID: activity.PlaceID,
			Address: activity.Address,
			Link:    activity.Link,
			EstCost: activity.Price,
			Notes:   "Backup activity - " + strings.Join(activity.Tags[:min(len(activity.Tags), 2)], ", "),
		})
	}
	return items
}

func arrivalItem(day domain.Date, req domain.UserRequest, transport *domain.TransportSelection) domain.ItineraryItem {
	item := domain.ItineraryItem{
		Day:   day,
		Time:  slotArrival,
		Title: "Travel from " + req.Origin,
	}
	if transport == nil {
		return item
	}
	item.EstCost = transport.Cost
	if transport.Mode == domain.TransportFlying {
		item.Title = fmt.Sprintf("Fly from %s to %s", req.Origin, req.Destination)
		item.Notes = fmt.Sprintf("Flight time: ~%dh %dm (including airport time)", transport.DurationMinutes/60, transport.DurationMinutes%60)
		return item
	}
	item.Notes = fmt.Sprintf("Driving time: %d minutes", transport.DurationMinutes)
	return item
}

func activityItem(day domain.Date, slot string, activity domain.ActivitySelection) domain.ItineraryItem {
	price := max(activity.Price, 0)
	notes := fmt.Sprintf("Rating: %s/5, Tags: %s", strconv.FormatFloat(activity.Rating, 'f', -1, 64), strings.Join(activity.Tags[:min(len(activity.Tags), 3)], ", "))
	if price > 0 {
		notes += fmt.Sprintf(", Price: $%.2f/person", price)
	} else {
		notes += ", Free"
	}
	return domain.ItineraryItem{
		Day:     day,
		Time:    slot,
		Title:   activity.Name,
		PlaceID: activity.PlaceID,
		Address: activity.Address,
		Link:    activity.Link,
		EstCost: price,
		Notes:   notes,
	}
}

// BreakdownBudget totals the committed selections per category.
func BreakdownBudget(state *domain.AgentState, budgetTotal float64) domain.BudgetBreakdown {
	var out domain.BudgetBreakdown
	if transport := state.Selections.Transport; transport != nil {
		out.Transport = transport.Cost
	}
	if hotel := state.Selections.Hotel; hotel != nil {
		out.Lodging = hotel.TotalPrice
	}
	travelers := float64(state.Travelers())
	for _, activity := range state.Selections.Activities {
		out.Activities += activity.Price * travelers
	}
	out.TotalSpent = out.Transport + out.Lodging + out.Activities
	out.Remaining = budgetTotal - out.TotalSpent
	return out
}

// MapPoints lists the hotel first, then every activity.
func MapPoints(state *domain.AgentState) []domain.MapPoint {
	points := make([]domain.MapPoint, 0, len(state.Selections.Activities)+1)
	if hotel := state.Selections.Hotel; hotel != nil {
		points = append(points, domain.MapPoint{
			Name: hotel.Name,
			Lat:  hotel.Lat,
			Lng:  hotel.Lng,
			Link: hotel.Link,
			Type: domain.MapPointHotel,
		})
	}
	for _, activity := range state.Selections.Activities {
		points = append(points, domain.MapPoint{
			Name: activity.Name,
			Lat:  activity.Lat,
			Lng:  activity.Lng,
			Link: activity.Link,
			Type: domain.MapPointActivity,
		})
	}
	return points
}

func Rationales(state *domain.AgentState) []string {
	out := make([]string, 0)
	for _, entry := range state.Log {
		if entry.Notes != "" && strings.Contains(strings.ToLower(entry.Notes), "selected") {
			out = append(out, fmt.Sprintf("%s: %s", entry.Tool, entry.Notes))
		}
	}
	if state.Selections.Hotel == nil {
		return out
	}
	switch remaining := state.BudgetRemaining; {
	case remaining > 200:
		out = append(out, "Budget management: Comfortable buffer remaining for unexpected expenses")
	case remaining > 50:
		out = append(out, "Budget management: Good balance between selections and remaining budget")
	default:
		out = append(out, "Budget management: Maximized budget utilization with minimal buffer")
	}
	return out
}

func AgentDecisions(state *domain.AgentState) []string {
	var planB, weatherReplan, multiInterest, proximity bool
	for _, entry := range state.Log {
		notes := strings.ToLower(entry.Notes)
		switch {
		case entry.Tool == domain.ToolLodgingPlanB && entry.Output.PlanB:
			planB = true
		case entry.Tool == domain.ToolWeatherReplan:
			weatherReplan = true
		}
		if strings.Contains(notes, "multi-interest") {
			multiInterest = true
		}
		if strings.Contains(notes, "nearby") || strings.Contains(notes, "distance") {
			proximity = true
		}
	}
	if hotel := state.Selections.Hotel; hotel != nil && hotel.PlanB {
		planB = true
	}

	out := make([]string, 0)
	if planB {
		out = append(out, "Triggered hotel Plan B due to budget constraints - selected more affordable option")
	}
	if weatherReplan {
		out = append(out, "Adjusted activity selection for rainy weather - prioritized indoor venues")
	}
	if multiInterest {
		out = append(out, "Found venues matching multiple interests - optimized for user preferences")
	}
	if proximity {
		out = append(out, "Filtered activities by proximity to hotel - minimized travel time")
	}

	selections := len(state.Selections.Activities)
	if state.Selections.Transport != nil {
		selections++
	}
	if state.Selections.Hotel != nil {
		selections++
	}
	if selections > 0 {
		out = append(out, fmt.Sprintf("Optimized %d selections within $%.0f budget", selections, state.BudgetTotal))
	}

	if transport := state.Selections.Transport; transport != nil {
		if transport.Mode == domain.TransportFlying {
			out = append(out, fmt.Sprintf("Selected flying for %.0f mile trip - faster travel for long distance", transport.DistanceMiles))
		} else {
			out = append(out, fmt.Sprintf("Selected driving for %.0f mile trip - cost-effective for shorter distances", transport.DistanceMiles))
		}
	}
	return out
}

// CalendarEvents converts schedulable items into calendar entries. Travel and
// hotel bookkeeping items are skipped.
func CalendarEvents(items []domain.ItineraryItem) []domain.CalendarEvent {
	events := make([]domain.CalendarEvent, 0, len(items))
	for _, item := range items {
		switch item.Time {
		case slotArrival, slotCheckIn, slotCheckOut, slotDeparture:
			continue
		}
		start, end := "09:00", "10:00"
		for _, block := range dayBlocks {
			if strings.Contains(item.Time, block.label) {
				start, end = block.start, block.end
				break
			}
		}
		day := item.Day.String()
		events = append(events, domain.CalendarEvent{
			Summary:     item.Title,
			Start:       day + "T" + start + ":00",
			End:         day + "T" + end + ":00",
			Location:    item.Address,
			Description: fmt.Sprintf("%s\nCost: $%.2f", item.Notes, item.EstCost),
			URL:         item.Link,
		})
	}
	return events
}

// enrich attaches the optional extras. A failing advisor only drops its own section.
func (s *Synthesizer) enrich(ctx context.Context, state *domain.AgentState, req domain.UserRequest) domain.Enrichments {
	var out domain.Enrichments
	season := req.StartDate.Season()

	if s.clothing != nil {
		input := ports.ClothingInput{Destination: req.Destination, Season: season, Days: req.Days()}
		if forecast, ok := state.LatestForecast(); ok {
			input.Forecast = &forecast
		}
		callCtx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
		advice, err := s.clothing.SuggestClothing(callCtx, input)
		cancel()
		if err != nil {
			s.logger.Warn("enrichment_failed", "kind", "clothing", "error", err)
		} else {
			out.Clothing = advice
		}
	}

	if s.music != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
		playlist, err := s.music.RecommendMusic(callCtx, req.Destination, season)
		cancel()
		if err != nil {
			s.logger.Warn("enrichment_failed", "kind", "music", "error", err)
		} else {
			out.Music = playlist
		}
	}

	if s.history != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
		history, err := s.history.CityHistory(callCtx, req.Destination)
		cancel()
		if err != nil {
			s.logger.Warn("enrichment_failed", "kind", "history", "error", err)
		} else {
			out.History = history
		}
	}
	return out
}
