package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"khidma/internal/shared/apperrors"
	"khidma/internal/trip/domain"
)

type TripRepo struct {
	db *pgxpool.Pool
}

func NewTripRepo(db *pgxpool.Pool) *TripRepo {
	return &TripRepo{db: db}
}

func (r *TripRepo) Create(ctx context.Context, trip domain.Trip) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO trips (
			id, client_id, start_name, start_lat, start_lon,
			end_name, end_lat, end_lon, trip_type, vehicle_types,
			description, places_number, price, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
	`,
		trip.ID, trip.ClientID,
		trip.StartLocation.Name, trip.StartLocation.Lat, trip.StartLocation.Lon,
		trip.EndLocation.Name, trip.EndLocation.Lat, trip.EndLocation.Lon,
		trip.TripType, trip.VehicleTypes, trip.Description,
		trip.PlacesNumber, trip.Price, trip.Status, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert trip failed: %w", err)
	}
	return nil
}

func (r *TripRepo) GetByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, client_id, driver_id, start_name, start_lat, start_lon,
		       end_name, end_lat, end_lon, trip_type, vehicle_types,
		       description, places_number, price, status, created_at, updated_at
		FROM trips
		WHERE id = $1
	`, tripID)

	trip, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, err
	}
	return trip, nil
}

// ClaimPending is the atomic acceptance step: the WHERE status='pending'
// guard means exactly one racing driver wins.
func (r *TripRepo) ClaimPending(ctx context.Context, tripID, driverID string, status domain.Status) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE trips
		SET status = $2, driver_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, tripID, status, driverID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.InvalidState("trip is no longer pending")
	}
	return nil
}

func (r *TripRepo) UpdateStatus(ctx context.Context, tripID string, status domain.Status) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE trips
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
	`, tripID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.InvalidState("trip is already finalized")
	}
	return nil
}

// Cancel flips the trip to cancelled and inserts the audit record in one
// transaction, so a cancelled trip always has its cancellation row.
func (r *TripRepo) Cancel(ctx context.Context, tripID string, record domain.CancelledTrip) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cancel tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE trips
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
	`, tripID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.InvalidState("trip is already finalized")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cancelled_trips (id, trip_id, cancelled_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, record.ID, record.TripID, record.CancelledBy, record.Reason, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cancelled_trip failed: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *TripRepo) GetActiveByClient(ctx context.Context, clientID string) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, client_id, driver_id, start_name, start_lat, start_lon,
		       end_name, end_lat, end_lon, trip_type, vehicle_types,
		       description, places_number, price, status, created_at, updated_at
		FROM trips
		WHERE client_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1
	`, clientID)

	trip, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("no active trip")
		}
		return nil, err
	}
	return trip, nil
}

func (r *TripRepo) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, client_id, driver_id, start_name, start_lat, start_lon,
		       end_name, end_lat, end_lon, trip_type, vehicle_types,
		       description, places_number, price, status, created_at, updated_at
		FROM trips
		WHERE driver_id = $1 AND status NOT IN ('pending', 'completed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1
	`, driverID)

	trip, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("no active trip")
		}
		return nil, err
	}
	return trip, nil
}

func (r *TripRepo) ListOpenForDriver(ctx context.Context, driverID string) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, client_id, driver_id, start_name, start_lat, start_lon,
		       end_name, end_lat, end_lon, trip_type, vehicle_types,
		       description, places_number, price, status, created_at, updated_at
		FROM trips
		WHERE status = 'pending' OR driver_id = $1
		ORDER BY created_at DESC
	`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, rows.Err()
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var trip domain.Trip
	err := row.Scan(
		&trip.ID, &trip.ClientID, &trip.DriverID,
		&trip.StartLocation.Name, &trip.StartLocation.Lat, &trip.StartLocation.Lon,
		&trip.EndLocation.Name, &trip.EndLocation.Lat, &trip.EndLocation.Lon,
		&trip.TripType, &trip.VehicleTypes, &trip.Description,
		&trip.PlacesNumber, &trip.Price, &trip.Status,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}
