package repository

import (
	"context"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
)

// ListLimit caps the number of trips returned by List. History views depend
// on most-recent-first ordering, so the cap always keeps the newest records.
const ListLimit = 50

// ListFilter narrows a List call. The zero value matches every trip.
type ListFilter struct {
	// Status, when non-empty, restricts results to trips in that status.
	Status domain.TripStatus
}

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// Update writes back an existing trip. Returns ErrNotFound if absent.
	Update(ctx context.Context, trip *domain.Trip) error

	// List retrieves trips matching the filter, ordered by creation time
	// descending, capped at ListLimit.
	List(ctx context.Context, filter ListFilter) ([]*domain.Trip, error)
}
