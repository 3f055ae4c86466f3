package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
	"github.com/Simphiwe396/Delivery-pwa/internal/redis"
)

// ──────────────────────────────────────────────
// MOCK BROADCASTER
// ──────────────────────────────────────────────

// MockBroadcaster records broadcast calls for verification.
type MockBroadcaster struct {
	mu sync.Mutex

	LocationUpdatedCount int32
	TripUpdatedCount     int32
	TripCompletedCount   int32

	lastTrip *domain.Trip
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) LocationUpdated(trip *domain.Trip) {
	atomic.AddInt32(&m.LocationUpdatedCount, 1)
	m.setLast(trip)
}

func (m *MockBroadcaster) TripUpdated(trip *domain.Trip) {
	atomic.AddInt32(&m.TripUpdatedCount, 1)
	m.setLast(trip)
}

func (m *MockBroadcaster) TripCompleted(trip *domain.Trip) {
	atomic.AddInt32(&m.TripCompletedCount, 1)
	m.setLast(trip)
}

func (m *MockBroadcaster) setLast(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *trip
	m.lastTrip = &copied
}

// LastTrip returns a copy of the most recently broadcast trip.
func (m *MockBroadcaster) LastTrip() *domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTrip
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory stand-in for the redis geo index.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string][2]float64

	UpdateLocationCallCount int32
	RemoveLocationCallCount int32
}

func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string][2]float64),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, tripID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[tripID] = [2]float64{lat, lng}
	return nil
}

func (m *MockLocationStore) FindNearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]redis.TripLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []redis.TripLocation
	for id, pos := range m.locations {
		result = append(result, redis.TripLocation{TripID: id, Lat: pos[0], Lng: pos[1]})
	}
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.RemoveLocationCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, tripID)
	return nil
}

// HasLocation reports whether a trip is present in the index.
func (m *MockLocationStore) HasLocation(tripID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory stand-in for the redis snapshot cache and
// the terminal-transition lock.
type MockCacheStore struct {
	mu    sync.Mutex
	trips map[string]*redis.CachedTrip
	locks map[string]bool

	SetTripCallCount int32
}

func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		trips: make(map[string]*redis.CachedTrip),
		locks: make(map[string]bool),
	}
}

func (m *MockCacheStore) GetTrip(ctx context.Context, tripID string) (*redis.CachedTrip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, nil
	}
	copied := *trip
	return &copied, nil
}

func (m *MockCacheStore) SetTrip(ctx context.Context, trip *redis.CachedTrip) error {
	atomic.AddInt32(&m.SetTripCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *trip
	m.trips[trip.ID] = &copied
	return nil
}

func (m *MockCacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, tripID)
	return nil
}

func (m *MockCacheStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[tripID] {
		return false, nil
	}
	m.locks[tripID] = true
	return true, nil
}

func (m *MockCacheStore) ReleaseTripLock(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, tripID)
	return nil
}

// CachedStatus returns the cached snapshot status for a trip, if any.
func (m *MockCacheStore) CachedStatus(tripID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trip, ok := m.trips[tripID]; ok {
		return trip.Status
	}
	return ""
}

// Ensure mocks satisfy the store interfaces.
var (
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
	_ redis.CacheStoreInterface    = (*MockCacheStore)(nil)
	_ Broadcaster                  = (*MockBroadcaster)(nil)
)
