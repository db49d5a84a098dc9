package ports

import (
	"context"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

// ToolGateway is the uniform contract over routing, lodging, weather and
// points-of-interest sources.
type ToolGateway interface {
	FindRoute(ctx context.Context, origin, destination string) (domain.RouteResult, error)
	SearchLodging(ctx context.Context, query LodgingQuery) ([]domain.LodgingOption, error)
	SearchLodgingFallback(ctx context.Context, query LodgingFallbackQuery) ([]domain.LodgingOption, error)
	ForecastWeather(ctx context.Context, city string, start, end domain.Date) (domain.Forecast, error)
	SearchPlaces(ctx context.Context, query, near string, limit int) ([]domain.Place, error)
}

type LodgingQuery struct {
	City       string
	StartDate  domain.Date
	EndDate    domain.Date
	MaxNightly float64
	Near       string
	Limit      int
}

type LodgingFallbackQuery struct {
	City             string
	StartDate        domain.Date
	EndDate          domain.Date
	OriginalMaxPrice float64
	RemainingBudget  float64
}

// Nights is the stay length used to turn nightly rates into totals.
func (q LodgingQuery) Nights() int {
	return max(1, q.StartDate.DaysUntil(q.EndDate))
}

func (q LodgingFallbackQuery) Nights() int {
	return max(1, q.StartDate.DaysUntil(q.EndDate))
}

// PlanGenerator returns raw structured plan text for a prompt and JSON schema.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, prompt string, schema []byte) (string, error)
}

// TripRepository persists trip records.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	Update(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
}

// TripQueue publishes/consumes asynchronous planning requests.
type TripQueue interface {
	PublishTripRequested(ctx context.Context, tripID string) error
	SubscribeTripRequested(ctx context.Context, handler func(context.Context, string) error) error
}

type ClothingInput struct {
	Destination string
	Season      string
	Forecast    *domain.Forecast
	Days        int
}

// ClothingAdvisor suggests what to pack.
type ClothingAdvisor interface {
	SuggestClothing(ctx context.Context, input ClothingInput) (*domain.ClothingAdvice, error)
}

// MusicAdvisor builds a destination playlist.
type MusicAdvisor interface {
	RecommendMusic(ctx context.Context, destination, season string) (*domain.MusicAdvice, error)
}

// HistoryWriter produces a short city history.
type HistoryWriter interface {
	CityHistory(ctx context.Context, destination string) (*domain.CityHistory, error)
}

// ItineraryExporter renders a finished trip into a downloadable document.
type ItineraryExporter interface {
	Export(ctx context.Context, trip *domain.Trip) ([]byte, error)
}

// AgentMetrics receives control-loop observations. Implementations must be safe
// for concurrent use.
type AgentMetrics interface {
	RecordToolCall(tool, status string)
	RecordReplan(constraint string)
	RecordPlanSource(source string)
	RecordRun(status string, budgetRemaining float64)
}
