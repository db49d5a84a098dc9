package memory

import (
	"context"
	"testing"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

func TestTripRepositoryLifecycle(t *testing.T) {
	repo := NewTripRepository()
	ctx := context.Background()
	trip := &domain.Trip{ID: "t-1", Status: domain.TripStatusQueued, Issues: []string{}}

	if err := repo.Create(ctx, trip); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, trip); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}

	trip.Status = domain.TripStatusReady
	trip.Issues = append(trip.Issues, "Budget exceeded by $5.00")
	if err := repo.Update(ctx, trip); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, err := repo.GetByID(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != domain.TripStatusReady || len(stored.Issues) != 1 {
		t.Fatalf("unexpected stored trip %+v", stored)
	}

	stored.Issues[0] = "mutated"
	again, _ := repo.GetByID(ctx, "t-1")
	if again.Issues[0] != "Budget exceeded by $5.00" {
		t.Fatalf("store must not share memory with callers")
	}
}

func TestTripRepositoryMissingTrip(t *testing.T) {
	repo := NewTripRepository()

	if _, err := repo.GetByID(context.Background(), "nope"); !domain.IsKind(err, domain.ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
	if err := repo.Update(context.Background(), &domain.Trip{ID: "nope"}); !domain.IsKind(err, domain.ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}
