package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"khidma/internal/shared/apperrors"
	"khidma/internal/trip/domain"
)

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{db: db}
}

func (r *DriverRepo) GetByID(ctx context.Context, driverID string) (*domain.Driver, error) {
	return r.get(ctx, `WHERE id = $1`, driverID)
}

func (r *DriverRepo) GetByUser(ctx context.Context, userID string) (*domain.Driver, error) {
	return r.get(ctx, `WHERE user_id = $1`, userID)
}

func (r *DriverRepo) get(ctx context.Context, where, arg string) (*domain.Driver, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, vehicle_type, transport_types, vehicle_name, places_number, is_available
		FROM drivers `+where, arg)

	var d domain.Driver
	err := row.Scan(&d.ID, &d.UserID, &d.VehicleType, &d.TransportTypes,
		&d.VehicleName, &d.PlacesNumber, &d.IsAvailable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("driver profile not found")
		}
		return nil, err
	}
	return &d, nil
}

func (r *DriverRepo) SetAvailability(ctx context.Context, driverUserID string, available bool) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE drivers SET is_available = $2 WHERE user_id = $1
	`, driverUserID, available)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NotFound("driver profile not found")
	}
	return nil
}
