package ports

import (
	"context"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

// TripPlanner is the inbound contract for synchronous and queued planning.
type TripPlanner interface {
	Plan(ctx context.Context, req domain.UserRequest) (*domain.Trip, error)
	Enqueue(ctx context.Context, req domain.UserRequest) (*domain.Trip, error)
}

// TripReader is the inbound read model for trip state.
type TripReader interface {
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
}

// TripProcessor plans a previously queued trip.
type TripProcessor interface {
	ProcessByID(ctx context.Context, tripID string) error
}

// TripExporter renders a stored trip.
type TripExporter interface {
	ExportByID(ctx context.Context, tripID string) ([]byte, error)
}
