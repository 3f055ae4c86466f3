package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const tripLocationKey = "trips:locations"

// TripLocation represents an active trip's last reported position.
type TripLocation struct {
	TripID string
	Lat    float64
	Lng    float64
}

// LocationStore maintains the geo index of active trip positions in Redis.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a trip's current position using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, tripID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, tripLocationKey, &redis.GeoLocation{
		Name:      tripID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyTrips returns trips within the given radius (in kilometers),
// closest first.
func (s *LocationStore) FindNearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]TripLocation, error) {
	results, err := s.client.GeoRadius(ctx, tripLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]TripLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, TripLocation{
			TripID: r.Name,
			Lat:    r.Latitude,
			Lng:    r.Longitude,
		})
	}

	return locations, nil
}

// RemoveLocation removes a trip from the geo index. Called when a trip
// leaves the active state.
func (s *LocationStore) RemoveLocation(ctx context.Context, tripID string) error {
	return s.client.ZRem(ctx, tripLocationKey, tripID).Err()
}
