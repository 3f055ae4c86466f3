package service

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
	"github.com/Simphiwe396/Delivery-pwa/internal/geo"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository/memory"
)

// Coordinates from the Johannesburg delivery scenario.
const (
	pickupLat = -26.2041
	pickupLng = 28.0473
	fixLat    = -26.1103
	fixLng    = 28.2285
)

func newTestService() (*TripService, *memory.TripRepository, *MockLocationStore, *MockCacheStore, *MockBroadcaster) {
	repo := memory.NewTripRepository()
	locations := NewMockLocationStore()
	cache := NewMockCacheStore()
	broadcaster := NewMockBroadcaster()
	svc := NewTripService(repo, locations, cache, broadcaster)
	return svc, repo, locations, cache, broadcaster
}

func startTrip(t *testing.T, svc *TripService) *domain.Trip {
	t.Helper()
	trip, err := svc.StartTrip(context.Background(), StartTripRequest{
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		Rate:      10,
	})
	if err != nil {
		t.Fatalf("unexpected error starting trip: %v", err)
	}
	return trip
}

func TestStartTrip_InitialState(t *testing.T) {
	t.Parallel()

	svc, _, locations, _, broadcaster := newTestService()
	trip := startTrip(t, svc)

	if trip.Status != domain.TripStatusActive {
		t.Errorf("expected status active, got %s", trip.Status)
	}
	if trip.Distance != 0 || trip.Fare != 0 {
		t.Errorf("expected zero distance and fare, got %f / %f", trip.Distance, trip.Fare)
	}
	if trip.Lat != pickupLat || trip.Lng != pickupLng {
		t.Errorf("expected current position at pickup, got (%f, %f)", trip.Lat, trip.Lng)
	}
	if trip.RiderName != domain.DefaultRiderName {
		t.Errorf("expected default rider name, got %q", trip.RiderName)
	}
	if trip.ID == "" {
		t.Error("expected an assigned id")
	}

	if !locations.HasLocation(trip.ID) {
		t.Error("expected trip in the geo index")
	}
	if broadcaster.TripUpdatedCount != 1 {
		t.Errorf("expected 1 tripUpdated broadcast, got %d", broadcaster.TripUpdatedCount)
	}
}

func TestStartTrip_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	testCases := []struct {
		name    string
		req     StartTripRequest
		wantErr error
	}{
		{"latitude out of range", StartTripRequest{PickupLat: 91, PickupLng: 0, Rate: 10}, ErrInvalidPickupLocation},
		{"longitude out of range", StartTripRequest{PickupLat: 0, PickupLng: -181, Rate: 10}, ErrInvalidPickupLocation},
		{"zero rate", StartTripRequest{PickupLat: pickupLat, PickupLng: pickupLng, Rate: 0}, ErrInvalidRate},
		{"negative rate", StartTripRequest{PickupLat: pickupLat, PickupLng: pickupLng, Rate: -5}, ErrInvalidRate},
		{"NaN rate", StartTripRequest{PickupLat: pickupLat, PickupLng: pickupLng, Rate: math.NaN()}, ErrInvalidRate},
		{"infinite rate", StartTripRequest{PickupLat: pickupLat, PickupLng: pickupLng, Rate: math.Inf(1)}, ErrInvalidRate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.StartTrip(ctx, tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReportLocation_AccumulatesDistanceAndFare(t *testing.T) {
	t.Parallel()

	svc, _, _, _, broadcaster := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	updated, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(updated.Distance-17.72) > 0.05 {
		t.Errorf("expected distance ~17.72 km, got %f", updated.Distance)
	}
	if math.Abs(updated.Fare-177.2) > 0.5 {
		t.Errorf("expected fare ~177.2, got %f", updated.Fare)
	}
	if updated.Lat != fixLat || updated.Lng != fixLng {
		t.Errorf("expected current position at the fix, got (%f, %f)", updated.Lat, updated.Lng)
	}
	if updated.Fare != updated.Distance*updated.Rate {
		t.Errorf("fare invariant broken: %f != %f * %f", updated.Fare, updated.Distance, updated.Rate)
	}
	if broadcaster.LocationUpdatedCount != 1 {
		t.Errorf("expected 1 locationUpdate broadcast, got %d", broadcaster.LocationUpdatedCount)
	}
}

func TestReportLocation_SameFixAddsNothing(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	first, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Distance != first.Distance || second.Fare != first.Fare {
		t.Errorf("repeated fix changed distance/fare: %f/%f -> %f/%f",
			first.Distance, first.Fare, second.Distance, second.Fare)
	}
}

func TestReportLocation_DistanceIsPathSumNotStraightLine(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	// Out to the fix and back to pickup: straight-line distance is zero, the
	// travelled path is two legs.
	if _, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: pickupLat, Lng: pickupLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	leg := geo.DistanceKm(pickupLat, pickupLng, fixLat, fixLng)
	if math.Abs(back.Distance-2*leg) > 0.001 {
		t.Errorf("expected round-trip distance %f, got %f", 2*leg, back.Distance)
	}
}

func TestReportLocation_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	if _, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: "", Lat: 0, Lng: 0}); !errors.Is(err, ErrInvalidTripID) {
		t.Errorf("expected ErrInvalidTripID, got %v", err)
	}
	if _, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: 95, Lng: 0}); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
	if _, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: "no-such-trip", Lat: 0, Lng: 0}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFinishTrip_RecordsDropoffAndCompletes(t *testing.T) {
	t.Parallel()

	svc, _, locations, cache, broadcaster := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	moved, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Finishing at the current position adds no distance.
	finished, err := svc.FinishTrip(ctx, FinishTripRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if finished.Status != domain.TripStatusCompleted {
		t.Errorf("expected status completed, got %s", finished.Status)
	}
	if finished.DropLat != fixLat || finished.DropLng != fixLng {
		t.Errorf("expected drop-off at (%f, %f), got (%f, %f)", fixLat, fixLng, finished.DropLat, finished.DropLng)
	}
	if finished.Distance != moved.Distance || finished.Fare != moved.Fare {
		t.Errorf("finishing in place changed distance/fare: %f/%f -> %f/%f",
			moved.Distance, moved.Fare, finished.Distance, finished.Fare)
	}

	if locations.HasLocation(trip.ID) {
		t.Error("expected trip removed from the geo index")
	}
	if cache.CachedStatus(trip.ID) != string(domain.TripStatusCompleted) {
		t.Error("expected cached snapshot to show completed")
	}
	if broadcaster.TripCompletedCount != 1 {
		t.Errorf("expected 1 tripCompleted broadcast, got %d", broadcaster.TripCompletedCount)
	}
}

func TestFinishTrip_FinalLegAccumulates(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	finished, err := svc.FinishTrip(ctx, FinishTripRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	leg := geo.DistanceKm(pickupLat, pickupLng, fixLat, fixLng)
	if math.Abs(finished.Distance-leg) > 0.001 {
		t.Errorf("expected final leg %f accumulated, got %f", leg, finished.Distance)
	}
	if finished.Fare != finished.Distance*finished.Rate {
		t.Errorf("fare invariant broken after finish")
	}
}

func TestFinishTrip_TwiceFails(t *testing.T) {
	t.Parallel()

	svc, repo, _, _, _ := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	finished, err := svc.FinishTrip(ctx, FinishTripRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.FinishTrip(ctx, FinishTripRequest{TripID: trip.ID, Lat: pickupLat, Lng: pickupLng}); !errors.Is(err, ErrTripNotActive) {
		t.Errorf("expected ErrTripNotActive on second finish, got %v", err)
	}

	stored, err := repo.GetByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Distance != finished.Distance || stored.Fare != finished.Fare {
		t.Errorf("second finish changed distance/fare: %f/%f", stored.Distance, stored.Fare)
	}
	if stored.DropLat != fixLat || stored.DropLng != fixLng {
		t.Error("second finish moved the drop-off")
	}
}

func TestCancelTrip_PreservesDistanceAndFare(t *testing.T) {
	t.Parallel()

	// Seed the store directly with the documented scenario: an active trip
	// at distance 5, fare 50.
	repo := memory.NewTripRepository()
	now := time.Now()
	seeded := &domain.Trip{
		ID:        "trip-1",
		RiderName: domain.DefaultRiderName,
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		Lat:       fixLat,
		Lng:       fixLng,
		Distance:  5,
		Rate:      10,
		Fare:      50,
		Status:    domain.TripStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), seeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	broadcaster := NewMockBroadcaster()
	svc := NewTripService(repo, nil, nil, broadcaster)

	cancelled, err := svc.CancelTrip(context.Background(), CancelTripRequest{TripID: "trip-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cancelled.Status != domain.TripStatusCancelled {
		t.Errorf("expected status cancelled, got %s", cancelled.Status)
	}
	if cancelled.Distance != 5 || cancelled.Fare != 50 {
		t.Errorf("cancel changed distance/fare: %f/%f", cancelled.Distance, cancelled.Fare)
	}
	if cancelled.HasDropoff() {
		t.Error("cancel must not record a drop-off")
	}
	if broadcaster.TripUpdatedCount != 1 {
		t.Errorf("expected 1 tripUpdated broadcast, got %d", broadcaster.TripUpdatedCount)
	}
}

func TestCancelTrip_TwiceFails(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	if _, err := svc.CancelTrip(ctx, CancelTripRequest{TripID: trip.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CancelTrip(ctx, CancelTripRequest{TripID: trip.ID}); !errors.Is(err, ErrTripNotActive) {
		t.Errorf("expected ErrTripNotActive on second cancel, got %v", err)
	}
}

func TestReportLocation_TerminalTripUnchanged(t *testing.T) {
	t.Parallel()

	// No side stores: the status guard alone must protect the record.
	repo := memory.NewTripRepository()
	svc := NewTripService(repo, nil, nil, nil)
	ctx := context.Background()

	trip, err := svc.StartTrip(ctx, StartTripRequest{PickupLat: pickupLat, PickupLng: pickupLng, Rate: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CancelTrip(ctx, CancelTripRequest{TripID: trip.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, err := repo.GetByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: fixLat, Lng: fixLng}); !errors.Is(err, ErrTripNotActive) {
		t.Errorf("expected ErrTripNotActive, got %v", err)
	}

	after, err := repo.GetByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rejected report mutated the record:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestListActive_FiltersTerminalTrips(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	active := startTrip(t, svc)
	done := startTrip(t, svc)
	gone := startTrip(t, svc)

	if _, err := svc.FinishTrip(ctx, FinishTripRequest{TripID: done.ID, Lat: fixLat, Lng: fixLng}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CancelTrip(ctx, CancelTripRequest{TripID: gone.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trips, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trips) != 1 || trips[0].ID != active.ID {
		t.Errorf("expected only the active trip, got %d trips", len(trips))
	}

	all, err := svc.ListTrips(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 trips in full listing, got %d", len(all))
	}
}

func TestNearbyTrips_ReturnsActiveSnapshots(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	first := startTrip(t, svc)
	second := startTrip(t, svc)

	snapshots, err := svc.NearbyTrips(ctx, pickupLat, pickupLng, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("expected 2 nearby trips, got %d", len(snapshots))
	}
	seen := map[string]bool{}
	for _, snap := range snapshots {
		seen[snap.ID] = true
		if snap.Status != string(domain.TripStatusActive) {
			t.Errorf("expected active snapshot, got %s", snap.Status)
		}
	}
	if !seen[first.ID] || !seen[second.ID] {
		t.Error("expected both started trips in the result")
	}
}

func TestNearbyTrips_NoLocationStore(t *testing.T) {
	t.Parallel()

	svc := NewTripService(memory.NewTripRepository(), nil, nil, nil)

	snapshots, err := svc.NearbyTrips(context.Background(), pickupLat, pickupLng, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("expected empty result, got %d", len(snapshots))
	}
}

func TestReportLocation_ConcurrentReportsSerialize(t *testing.T) {
	t.Parallel()

	svc, repo, _, _, _ := newTestService()
	ctx := context.Background()
	trip := startTrip(t, svc)

	// Every report is at pickup or at the fix, so each serialized increment
	// is either zero or exactly one leg. Lost updates would leave a distance
	// that is not a whole number of legs.
	leg := geo.DistanceKm(pickupLat, pickupLng, fixLat, fixLng)

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lat, lng := pickupLat, pickupLng
			if i%2 == 0 {
				lat, lng = fixLat, fixLng
			}
			_, err := svc.ReportLocation(ctx, ReportLocationRequest{TripID: trip.ID, Lat: lat, Lng: lng})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	legs := stored.Distance / leg
	if math.Abs(legs-math.Round(legs)) > 1e-6 {
		t.Errorf("distance %f is not a whole number of %f km legs", stored.Distance, leg)
	}
	if stored.Fare != stored.Distance*stored.Rate {
		t.Errorf("fare invariant broken under concurrency: %f != %f*%f", stored.Fare, stored.Distance, stored.Rate)
	}
}
