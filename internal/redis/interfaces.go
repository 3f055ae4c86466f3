package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for the active-trip geo index.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, tripID string, lat, lng float64) error
	FindNearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]TripLocation, error)
	RemoveLocation(ctx context.Context, tripID string) error
}

// CacheStoreInterface defines the interface for trip snapshot caching and
// terminal-transition locking.
type CacheStoreInterface interface {
	GetTrip(ctx context.Context, tripID string) (*CachedTrip, error)
	SetTrip(ctx context.Context, trip *CachedTrip) error
	InvalidateTrip(ctx context.Context, tripID string) error
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
