package service

import "errors"

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are out of range.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidLocation is returned when location coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidRate is returned when the per-kilometer rate is not a positive finite number.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrTripNotActive is returned when a mutation is attempted on a completed
	// or cancelled trip.
	ErrTripNotActive = errors.New("trip is not active")
)
