package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `id, rider_name, pickup_lat, pickup_lng, drop_lat, drop_lng,
	lat, lng, distance_km, rate, fare, status, created_at, updated_at`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	dropLat, dropLng := nullDropoff(trip)

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.RiderName,
		trip.PickupLat,
		trip.PickupLng,
		dropLat,
		dropLng,
		trip.Lat,
		trip.Lng,
		trip.Distance,
		trip.Rate,
		trip.Fare,
		trip.Status,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// Update writes back an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET rider_name = $1, drop_lat = $2, drop_lng = $3, lat = $4, lng = $5,
		    distance_km = $6, rate = $7, fare = $8, status = $9, updated_at = $10
		WHERE id = $11
	`

	dropLat, dropLng := nullDropoff(trip)

	result, err := r.q.ExecContext(ctx, query,
		trip.RiderName,
		dropLat,
		dropLng,
		trip.Lat,
		trip.Lng,
		trip.Distance,
		trip.Rate,
		trip.Fare,
		trip.Status,
		trip.UpdatedAt,
		trip.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List retrieves trips matching the filter, newest first, capped at
// repository.ListLimit. The ordering is part of the store contract.
func (r *TripRepository) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips`
	args := []any{}

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY created_at DESC LIMIT 50`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (*domain.Trip, error) {
	var trip domain.Trip
	var dropLat, dropLng sql.NullFloat64

	err := row.Scan(
		&trip.ID,
		&trip.RiderName,
		&trip.PickupLat,
		&trip.PickupLng,
		&dropLat,
		&dropLng,
		&trip.Lat,
		&trip.Lng,
		&trip.Distance,
		&trip.Rate,
		&trip.Fare,
		&trip.Status,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dropLat.Valid {
		trip.DropLat = dropLat.Float64
	}
	if dropLng.Valid {
		trip.DropLng = dropLng.Float64
	}

	return &trip, nil
}

// nullDropoff maps the drop-off coordinate to NULLs until the trip completes,
// so an incomplete trip never carries a fake (0, 0) drop-off.
func nullDropoff(trip *domain.Trip) (sql.NullFloat64, sql.NullFloat64) {
	if !trip.HasDropoff() {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: trip.DropLat, Valid: true},
		sql.NullFloat64{Float64: trip.DropLng, Valid: true}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
