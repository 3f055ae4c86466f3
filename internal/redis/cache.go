package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles trip snapshot caching and terminal-transition locking
// in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// TripCacheTTL bounds staleness of cached snapshots; every mutation refreshes
// the entry, so the TTL only matters for trips that stop moving.
const TripCacheTTL = 60 * time.Second

const tripCachePrefix = "cache:trip:"

// CachedTrip is the trip snapshot stored in cache. It carries the public
// fields observers see, not the full record.
type CachedTrip struct {
	ID        string  `json:"id"`
	RiderName string  `json:"riderName"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Distance  float64 `json:"distance"`
	Fare      float64 `json:"fare"`
	Rate      float64 `json:"rate"`
	Status    string  `json:"status"`
}

// GetTrip retrieves a trip snapshot from cache. Returns (nil, nil) on a miss.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*CachedTrip, error) {
	key := tripCachePrefix + tripID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var trip CachedTrip
	if err := json.Unmarshal(data, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// SetTrip stores a trip snapshot in cache.
func (s *CacheStore) SetTrip(ctx context.Context, trip *CachedTrip) error {
	key := tripCachePrefix + trip.ID
	data, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, TripCacheTTL).Err()
}

// InvalidateTrip removes a trip snapshot from cache.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	key := tripCachePrefix + tripID
	return s.client.Del(ctx, key).Err()
}

// AcquireTripLock attempts to acquire the terminal-transition lock for a
// trip, so duplicate finish/cancel requests racing across instances cannot
// both pass the status guard. Returns true if the lock was acquired.
func (s *CacheStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:trip:%s", tripID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseTripLock releases the terminal-transition lock for a trip.
func (s *CacheStore) ReleaseTripLock(ctx context.Context, tripID string) error {
	key := fmt.Sprintf("lock:trip:%s", tripID)

	return s.client.Del(ctx, key).Err()
}
