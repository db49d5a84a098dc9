package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest() domain.UserRequest {
	return domain.UserRequest{
		Origin:      "Austin, TX",
		Destination: "Dallas, TX",
		StartDate:   domain.NewDate(2025, 6, 1),
		EndDate:     domain.NewDate(2025, 6, 3),
		Travelers:   2,
		BudgetTotal: 1000,
		Interests:   []string{"food", "music"},
	}
}

func floatPtr(v float64) *float64 { return &v }

type gatewayFake struct {
	route       domain.RouteResult
	routeErr    error
	lodging     []domain.LodgingOption
	lodgingErr  error
	planB       []domain.LodgingOption
	forecast    domain.Forecast
	forecastErr error
	places      map[string][]domain.Place
	placesErr   error

	lodgingQueries  []ports.LodgingQuery
	fallbackQueries []ports.LodgingFallbackQuery
	placeQueries    []string
	placeLimits     []int
}

func newGatewayFake() *gatewayFake {
	return &gatewayFake{
		route: domain.RouteResult{Status: domain.StatusSuccess, DistanceMiles: 195, DurationMinutes: 180, GasEstimate: 27.30},
		lodging: []domain.LodgingOption{
			{Name: "Downtown Inn", PricePerNight: 120, TotalPrice: 240, Rating: 4.2, Lat: 32.7767, Lng: -96.7970, Address: "1 Main St, Dallas, TX"},
		},
		forecast: domain.Forecast{Status: domain.StatusSuccess, Summary: "Sunny", HighF: 88, LowF: 70, RainChance: 0.1},
		places: map[string][]domain.Place{
			"food": {
				{Name: "Taco Hall", Tags: []string{"food", "restaurant"}, Rating: 4.6, Price: floatPtr(12), Lat: 32.78, Lng: -96.80, PlaceID: "p-taco"},
				{Name: "Live Music Diner", Tags: []string{"food", "music", "bar"}, Rating: 4.4, Price: floatPtr(20), Lat: 32.779, Lng: -96.799, PlaceID: "p-diner"},
			},
			"music": {
				{Name: "Live Music Diner", Tags: []string{"food", "music", "bar"}, Rating: 4.4, Price: floatPtr(20), Lat: 32.779, Lng: -96.799, PlaceID: "p-diner"},
				{Name: "Klyde Warren Park", Tags: []string{"park", "outdoor"}, Rating: 4.8, Lat: 32.789, Lng: -96.801, PlaceID: "p-park"},
			},
		},
	}
}

func (f *gatewayFake) FindRoute(context.Context, string, string) (domain.RouteResult, error) {
	if f.routeErr != nil {
		return domain.RouteResult{}, f.routeErr
	}
	return f.route, nil
}

func (f *gatewayFake) SearchLodging(_ context.Context, query ports.LodgingQuery) ([]domain.LodgingOption, error) {
	f.lodgingQueries = append(f.lodgingQueries, query)
	if f.lodgingErr != nil {
		return nil, f.lodgingErr
	}
	return f.lodging, nil
}

func (f *gatewayFake) SearchLodgingFallback(_ context.Context, query ports.LodgingFallbackQuery) ([]domain.LodgingOption, error) {
	f.fallbackQueries = append(f.fallbackQueries, query)
	return f.planB, nil
}

func (f *gatewayFake) ForecastWeather(context.Context, string, domain.Date, domain.Date) (domain.Forecast, error) {
	if f.forecastErr != nil {
		return domain.Forecast{}, f.forecastErr
	}
	return f.forecast, nil
}

func (f *gatewayFake) SearchPlaces(_ context.Context, query, _ string, limit int) ([]domain.Place, error) {
	f.placeQueries = append(f.placeQueries, query)
	f.placeLimits = append(f.placeLimits, limit)
	if f.placesErr != nil {
		return nil, f.placesErr
	}
	return f.places[query], nil
}

type generatorFake struct {
	raw    string
	err    error
	prompt string
	calls  int
}

func (f *generatorFake) GeneratePlan(_ context.Context, prompt string, _ []byte) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

type metricsFake struct {
	mu      sync.Mutex
	tools   map[string]int
	replans map[string]int
	sources map[string]int
	runs    map[string]int
}

func newMetricsFake() *metricsFake {
	return &metricsFake{
		tools:   map[string]int{},
		replans: map[string]int{},
		sources: map[string]int{},
		runs:    map[string]int{},
	}
}

func (m *metricsFake) RecordToolCall(tool, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[tool+"/"+status]++
}

func (m *metricsFake) RecordReplan(constraint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replans[constraint]++
}

func (m *metricsFake) RecordPlanSource(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source]++
}

func (m *metricsFake) RecordRun(status string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[status]++
}

type tripRepoFake struct {
	trips     map[string]domain.Trip
	updates   []domain.TripStatus
	createErr error
}

func newTripRepoFake() *tripRepoFake {
	return &tripRepoFake{trips: map[string]domain.Trip{}}
}

func (r *tripRepoFake) Create(_ context.Context, trip *domain.Trip) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.trips[trip.ID] = *trip
	return nil
}

func (r *tripRepoFake) Update(_ context.Context, trip *domain.Trip) error {
	if _, ok := r.trips[trip.ID]; !ok {
		return domain.ErrTripNotFound
	}
	r.trips[trip.ID] = *trip
	r.updates = append(r.updates, trip.Status)
	return nil
}

func (r *tripRepoFake) GetByID(_ context.Context, id string) (*domain.Trip, error) {
	trip, ok := r.trips[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrTripNotFound, "get trip", errors.New(id))
	}
	return &trip, nil
}

type tripQueueFake struct {
	published []string
	err       error
}

func (q *tripQueueFake) PublishTripRequested(_ context.Context, tripID string) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, tripID)
	return nil
}

func (q *tripQueueFake) SubscribeTripRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

type exporterFake struct {
	exported []string
}

func (e *exporterFake) Export(_ context.Context, trip *domain.Trip) ([]byte, error) {
	e.exported = append(e.exported, trip.ID)
	return []byte("xlsx"), nil
}
