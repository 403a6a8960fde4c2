package domain

import "context"

type TripRepository interface {
	Create(ctx context.Context, trip Trip) error
	GetByID(ctx context.Context, tripID string) (*Trip, error)

	// ClaimPending binds a driver and moves the trip out of pending in one
	// conditional update; it fails if the trip is no longer pending.
	ClaimPending(ctx context.Context, tripID, driverID string, status Status) error

	// UpdateStatus transitions a non-terminal trip; it fails if the trip has
	// already reached a terminal status.
	UpdateStatus(ctx context.Context, tripID string, status Status) error

	// Cancel finalizes a non-terminal trip and writes its audit record in
	// one transaction; a failure leaves the trip untouched.
	Cancel(ctx context.Context, tripID string, record CancelledTrip) error

	GetActiveByClient(ctx context.Context, clientID string) (*Trip, error)
	GetActiveByDriver(ctx context.Context, driverID string) (*Trip, error)
	ListOpenForDriver(ctx context.Context, driverID string) ([]Trip, error)
}

type DriverRepository interface {
	GetByID(ctx context.Context, driverID string) (*Driver, error)
	GetByUser(ctx context.Context, userID string) (*Driver, error)
	SetAvailability(ctx context.Context, driverUserID string, available bool) error
}
