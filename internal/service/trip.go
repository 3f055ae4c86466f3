package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
	"github.com/Simphiwe396/Delivery-pwa/internal/geo"
	"github.com/Simphiwe396/Delivery-pwa/internal/redis"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository"
)

// terminalLockTTL bounds how long a finish/cancel lock can outlive a crashed
// instance.
const terminalLockTTL = 30 * time.Second

// Broadcaster receives trip state changes after they are committed to the
// store. Delivery is best-effort; implementations must never block on a slow
// observer and never report failure back to the engine.
type Broadcaster interface {
	// LocationUpdated is published for every accepted location report.
	LocationUpdated(trip *domain.Trip)

	// TripUpdated is published when a trip is created or cancelled.
	TripUpdated(trip *domain.Trip)

	// TripCompleted is published when a trip finishes.
	TripCompleted(trip *domain.Trip)
}

// TripService is the trip lifecycle engine. It is the only component that
// transitions trip status or mutates distance and fare; handlers submit
// requests and never touch records directly.
type TripService struct {
	tripRepo      repository.TripRepository
	locationStore redis.LocationStoreInterface
	cacheStore    redis.CacheStoreInterface
	broadcaster   Broadcaster

	// Per-trip mutexes. ReportLocation is a read-then-increment, so updates
	// to the same trip must serialize; different trips proceed in parallel.
	locks sync.Map // trip ID -> *sync.Mutex
}

// NewTripService creates a new TripService. The location store, cache store
// and broadcaster may each be nil; the engine degrades to repository-only
// operation without them.
func NewTripService(
	tripRepo repository.TripRepository,
	locationStore redis.LocationStoreInterface,
	cacheStore redis.CacheStoreInterface,
	broadcaster Broadcaster,
) *TripService {
	return &TripService{
		tripRepo:      tripRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		broadcaster:   broadcaster,
	}
}

// lockTrip acquires the mutex for a trip and returns its unlock function.
func (s *TripService) lockTrip(tripID string) func() {
	v, _ := s.locks.LoadOrStore(tripID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// StartTripRequest contains the parameters for starting a trip.
type StartTripRequest struct {
	PickupLat float64
	PickupLng float64
	Rate      float64
	RiderName string
}

// StartTrip creates a new active trip with the current position at pickup,
// zero distance and zero fare.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*domain.Trip, error) {
	if !geo.ValidLatitude(req.PickupLat) || !geo.ValidLongitude(req.PickupLng) {
		return nil, ErrInvalidPickupLocation
	}

	if req.Rate <= 0 || math.IsNaN(req.Rate) || math.IsInf(req.Rate, 0) {
		return nil, ErrInvalidRate
	}

	riderName := req.RiderName
	if riderName == "" {
		riderName = domain.DefaultRiderName
	}

	now := time.Now()
	trip := &domain.Trip{
		ID:        uuid.New().String(),
		RiderName: riderName,
		PickupLat: req.PickupLat,
		PickupLng: req.PickupLng,
		Lat:       req.PickupLat,
		Lng:       req.PickupLng,
		Distance:  0,
		Rate:      req.Rate,
		Fare:      0,
		Status:    domain.TripStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.indexLocation(ctx, trip)
	s.cacheSnapshot(ctx, trip)

	if s.broadcaster != nil {
		s.broadcaster.TripUpdated(trip)
	}

	return trip, nil
}

// ReportLocationRequest contains the parameters for a location report.
type ReportLocationRequest struct {
	TripID string
	Lat    float64
	Lng    float64
}

// ReportLocation applies a GPS fix to an active trip: the displacement from
// the previous position is added to the accumulated distance and the fare is
// recomputed. Distance is a running sum of consecutive fixes, approximating
// the actual path rather than a pickup-to-current straight line, so earlier
// increments are never discarded when the position moves.
func (s *TripService) ReportLocation(ctx context.Context, req ReportLocationRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	if !geo.ValidLatitude(req.Lat) || !geo.ValidLongitude(req.Lng) {
		return nil, ErrInvalidLocation
	}

	unlock := s.lockTrip(req.TripID)
	defer unlock()

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}

	s.applyFix(trip, req.Lat, req.Lng)

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.indexLocation(ctx, trip)
	s.cacheSnapshot(ctx, trip)

	if s.broadcaster != nil {
		s.broadcaster.LocationUpdated(trip)
	}

	return trip, nil
}

// FinishTripRequest contains the parameters for finishing a trip.
type FinishTripRequest struct {
	TripID string
	Lat    float64
	Lng    float64
}

// FinishTrip applies one final distance accumulation to the given coordinate,
// records it as the drop-off and completes the trip. Completed trips admit no
// further mutation.
func (s *TripService) FinishTrip(ctx context.Context, req FinishTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	if !geo.ValidLatitude(req.Lat) || !geo.ValidLongitude(req.Lng) {
		return nil, ErrInvalidLocation
	}

	unlock := s.lockTrip(req.TripID)
	defer unlock()

	release, err := s.acquireTerminalLock(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			release()
		}
	}()

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}

	s.applyFix(trip, req.Lat, req.Lng)
	trip.DropLat = req.Lat
	trip.DropLng = req.Lng
	trip.Status = domain.TripStatusCompleted

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}
	committed = true

	s.dropLocation(ctx, trip)
	s.cacheSnapshot(ctx, trip)

	if s.broadcaster != nil {
		s.broadcaster.TripCompleted(trip)
	}

	return trip, nil
}

// CancelTripRequest contains the parameters for cancelling a trip.
type CancelTripRequest struct {
	TripID string
}

// CancelTrip cancels an active trip. Distance and fare keep their last
// values; no drop-off is recorded. Cancelled trips admit no further mutation.
func (s *TripService) CancelTrip(ctx context.Context, req CancelTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	unlock := s.lockTrip(req.TripID)
	defer unlock()

	release, err := s.acquireTerminalLock(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			release()
		}
	}()

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}

	trip.Status = domain.TripStatusCancelled
	trip.UpdatedAt = time.Now()

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}
	committed = true

	s.dropLocation(ctx, trip)
	s.cacheSnapshot(ctx, trip)

	if s.broadcaster != nil {
		s.broadcaster.TripUpdated(trip)
	}

	return trip, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	return s.tripRepo.GetByID(ctx, tripID)
}

// ListTrips retrieves all trips, newest first, capped at repository.ListLimit.
func (s *TripService) ListTrips(ctx context.Context) ([]*domain.Trip, error) {
	return s.tripRepo.List(ctx, repository.ListFilter{})
}

// ListActive retrieves trips that are currently active.
func (s *TripService) ListActive(ctx context.Context) ([]*domain.Trip, error) {
	return s.tripRepo.List(ctx, repository.ListFilter{Status: domain.TripStatusActive})
}

// NearbyTrips returns snapshots of active trips within radiusKm of the given
// point, closest first. Requires the geo index; returns an empty slice when
// no location store is configured.
func (s *TripService) NearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]*redis.CachedTrip, error) {
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}

	if s.locationStore == nil {
		return []*redis.CachedTrip{}, nil
	}

	locations, err := s.locationStore.FindNearbyTrips(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*redis.CachedTrip, 0, len(locations))
	for _, loc := range locations {
		snap := s.snapshotFor(ctx, loc.TripID)
		if snap == nil {
			continue
		}
		// The geo index holds the freshest position.
		snap.Lat = loc.Lat
		snap.Lng = loc.Lng
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// snapshotFor resolves a trip snapshot, consulting the cache before the
// repository and backfilling the cache on a miss.
func (s *TripService) snapshotFor(ctx context.Context, tripID string) *redis.CachedTrip {
	if s.cacheStore != nil {
		if snap, err := s.cacheStore.GetTrip(ctx, tripID); err == nil && snap != nil {
			return snap
		}
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil
	}

	snap := snapshot(trip)
	if s.cacheStore != nil {
		_ = s.cacheStore.SetTrip(ctx, snap)
	}
	return snap
}

// applyFix folds one coordinate fix into the trip: accumulate displacement,
// move the current position, recompute fare.
func (s *TripService) applyFix(trip *domain.Trip, lat, lng float64) {
	trip.Distance += geo.DistanceKm(trip.Lat, trip.Lng, lat, lng)
	trip.Lat = lat
	trip.Lng = lng
	trip.Fare = trip.Distance * trip.Rate
	trip.UpdatedAt = time.Now()
}

// acquireTerminalLock takes the cross-instance finish/cancel lock when a
// cache store is configured, returning a release function for failure paths.
// After a committed terminal transition the lock is left to expire; the
// status guard on the record takes over from there. A redis failure degrades
// silently; the record remains the source of truth.
func (s *TripService) acquireTerminalLock(ctx context.Context, tripID string) (func(), error) {
	noop := func() {}
	if s.cacheStore == nil {
		return noop, nil
	}

	locked, err := s.cacheStore.AcquireTripLock(ctx, tripID, terminalLockTTL)
	if err != nil {
		return noop, nil
	}
	if !locked {
		return noop, ErrTripNotActive
	}

	return func() {
		_ = s.cacheStore.ReleaseTripLock(ctx, tripID)
	}, nil
}

// indexLocation updates the active-trip geo index. Best-effort.
func (s *TripService) indexLocation(ctx context.Context, trip *domain.Trip) {
	if s.locationStore == nil {
		return
	}
	_ = s.locationStore.UpdateLocation(ctx, trip.ID, trip.Lat, trip.Lng)
}

// dropLocation removes a trip from the geo index once it leaves the active
// state. Best-effort.
func (s *TripService) dropLocation(ctx context.Context, trip *domain.Trip) {
	if s.locationStore == nil {
		return
	}
	_ = s.locationStore.RemoveLocation(ctx, trip.ID)
}

// cacheSnapshot refreshes the cached snapshot after a committed mutation.
// Best-effort.
func (s *TripService) cacheSnapshot(ctx context.Context, trip *domain.Trip) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.SetTrip(ctx, snapshot(trip))
}

func snapshot(trip *domain.Trip) *redis.CachedTrip {
	return &redis.CachedTrip{
		ID:        trip.ID,
		RiderName: trip.RiderName,
		Lat:       trip.Lat,
		Lng:       trip.Lng,
		Distance:  trip.Distance,
		Fare:      trip.Fare,
		Rate:      trip.Rate,
		Status:    string(trip.Status),
	}
}
