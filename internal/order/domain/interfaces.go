package domain

import "context"

type OrderRepository interface {
	Create(ctx context.Context, order Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByClient(ctx context.Context, clientID string) ([]Order, error)
	ListForArtisan(ctx context.Context, artisanID string, professions []string, wilaya string) ([]Order, error)

	// AcceptPending moves a pending order to accepted and binds the artisan
	// in one conditional update; it fails if the order is not pending.
	AcceptPending(ctx context.Context, orderID, artisanID string) error

	// Finalize moves the order to rejected/canceled/completed with the
	// cancellation record when there is one.
	Finalize(ctx context.Context, orderID string, status Status, cancellation *Cancellation) error
}

type OfferRepository interface {
	Create(ctx context.Context, offer Offer) error
	GetByID(ctx context.Context, offerID string) (*Offer, error)
	FindByArtisanAndOrder(ctx context.Context, artisanID, orderID string) (*Offer, error)
	ListByOrder(ctx context.Context, orderID string) ([]Offer, error)
	ListByArtisan(ctx context.Context, artisanID string) ([]Offer, error)

	// SettleForOrder marks the winning offer accepted and every other
	// pending offer on the order rejected.
	SettleForOrder(ctx context.Context, orderID, acceptedOfferID string) error
}
