package domain

import "time"

// Notification kinds mirror the events the state machines emit.
const (
	KindTripRequested     = "trip_requested"
	KindTripAccepted      = "trip_accepted"
	KindTripStatusChanged = "trip_status_changed"
	KindOrderRequested    = "artisan_order_requested"
	KindOfferAdded        = "artisan_add_offer"
	KindOfferAccepted     = "accept_offer"
	KindOrderRejected     = "artisan_order_reject"
	KindOrderCancelled    = "artisan_order_cancel"
	KindOrderCompleted    = "end_order"
	KindClientOrderCancel = "client_order_cancel"
)

// Notification is the durable record behind a live push. The row survives
// even when the live delivery is dropped.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	FromUserID string    `json:"fromUserId,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Kind       string    `json:"kind"`
	RedirectID string    `json:"redirectId,omitempty"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Input struct {
	UserID     string
	FromUserID string
	Title      string
	Body       string
	Kind       string
	RedirectID string
}
