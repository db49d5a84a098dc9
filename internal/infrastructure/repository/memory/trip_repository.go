// Package memory keeps trips in process memory for single-node deployments
// and the CLI.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

type TripRepository struct {
	mu    sync.RWMutex
	trips map[string][]byte
}

func NewTripRepository() *TripRepository {
	return &TripRepository{trips: make(map[string][]byte)}
}

// Trips are stored encoded so callers never share state with the store.
func (r *TripRepository) Create(_ context.Context, trip *domain.Trip) error {
	raw, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("marshal trip: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.trips[trip.ID]; exists {
		return fmt.Errorf("trip %s already exists", trip.ID)
	}
	r.trips[trip.ID] = raw
	return nil
}

func (r *TripRepository) Update(_ context.Context, trip *domain.Trip) error {
	raw, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("marshal trip: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.trips[trip.ID]; !exists {
		return domain.WrapError(domain.ErrTripNotFound, "update trip", errors.New(trip.ID))
	}
	r.trips[trip.ID] = raw
	return nil
}

func (r *TripRepository) GetByID(_ context.Context, id string) (*domain.Trip, error) {
	r.mu.RLock()
	raw, ok := r.trips[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrTripNotFound, "get trip", errors.New(id))
	}
	var trip domain.Trip
	if err := json.Unmarshal(raw, &trip); err != nil {
		return nil, fmt.Errorf("unmarshal trip: %w", err)
	}
	return &trip, nil
}
