package domain

import "time"

// TripStatus represents the lifecycle state of a trip.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s TripStatus) Terminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// DefaultRiderName is used when a trip is started without a rider label.
const DefaultRiderName = "Courier"

// Trip is a single delivery engagement from pickup to completion or
// cancellation. Distance is the running sum of consecutive-fix displacements
// in kilometers. Fare is always Distance * Rate.
type Trip struct {
	ID        string
	RiderName string

	PickupLat float64
	PickupLng float64

	// Current position, updated on every location report.
	Lat float64
	Lng float64

	// Drop-off position, recorded exactly once when the trip completes.
	DropLat float64
	DropLng float64

	Distance float64 // kilometers
	Rate     float64 // currency per kilometer
	Fare     float64

	Status TripStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasDropoff reports whether the drop-off coordinate has been recorded.
func (t *Trip) HasDropoff() bool {
	return t.Status == TripStatusCompleted
}
