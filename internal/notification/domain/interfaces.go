package domain

import "context"

type NotificationRepository interface {
	Create(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
}

// Notifier is the interface the state machines depend on. Delivery failures
// never fail the triggering operation.
type Notifier interface {
	Notify(ctx context.Context, in Input)
}
