// Package memory provides an in-memory trip repository. It backs the
// standalone mode (no database) and the test suites.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository"
)

// TripRepository is an in-memory implementation of repository.TripRepository.
// All methods return copies so callers can never mutate stored records
// without going through Update.
type TripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip
}

// NewTripRepository creates an empty in-memory trip repository.
func NewTripRepository() *TripRepository {
	return &TripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *trip
	r.trips[trip.ID] = &stored
	return nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trip, ok := r.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	stored := *trip
	return &stored, nil
}

// Update writes back an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}

	stored := *trip
	r.trips[trip.ID] = &stored
	return nil
}

// List retrieves trips matching the filter, newest first, capped at
// repository.ListLimit.
func (r *TripRepository) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trips := make([]*domain.Trip, 0, len(r.trips))
	for _, trip := range r.trips {
		if filter.Status != "" && trip.Status != filter.Status {
			continue
		}
		stored := *trip
		trips = append(trips, &stored)
	}

	sort.Slice(trips, func(i, j int) bool {
		if trips[i].CreatedAt.Equal(trips[j].CreatedAt) {
			// Stable tie-break so listing order is deterministic.
			return trips[i].ID > trips[j].ID
		}
		return trips[i].CreatedAt.After(trips[j].CreatedAt)
	})

	if len(trips) > repository.ListLimit {
		trips = trips[:repository.ListLimit]
	}

	return trips, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
