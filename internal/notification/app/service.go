package app

import (
	"context"
	"fmt"
	"time"

	"khidma/internal/notification/domain"
	"khidma/internal/realtime"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/util"
)

// EventPusher delivers a live event to a connected user, dropping it when the
// user is absent.
type EventPusher interface {
	Push(userID string, event interface{})
}

// EventPublisher writes the event to the durable broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, data interface{}) error
}

type NotificationService struct {
	repo   domain.NotificationRepository
	fanout EventPusher
	pub    EventPublisher
	logger *util.Logger
}

func NewNotificationService(repo domain.NotificationRepository, fanout EventPusher, pub EventPublisher, logger *util.Logger) *NotificationService {
	return &NotificationService{repo: repo, fanout: fanout, pub: pub, logger: logger}
}

// Notify persists the record, pushes it to the recipient if connected and
// publishes it to the broker. Only the persist step can fail the sink; push
// and publish are best-effort.
func (s *NotificationService) Notify(ctx context.Context, in domain.Input) {
	instance := "NotificationService.Notify"

	n := domain.Notification{
		ID:         util.NewID(),
		UserID:     in.UserID,
		FromUserID: in.FromUserID,
		Title:      in.Title,
		Body:       in.Body,
		Kind:       in.Kind,
		RedirectID: in.RedirectID,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error(instance, fmt.Sprintf("failed to persist notification for %s", in.UserID), err)
		return
	}

	s.fanout.Push(in.UserID, realtime.NotificationEvent{
		Type:       realtime.EventNotification,
		Title:      n.Title,
		Body:       n.Body,
		Kind:       n.Kind,
		FromUserID: n.FromUserID,
		RedirectID: n.RedirectID,
		At:         n.CreatedAt,
	})

	if s.pub != nil {
		routingKey := "notification." + n.Kind
		if err := s.pub.Publish(ctx, routingKey, n); err != nil {
			s.logger.Warn(instance, fmt.Sprintf("broker publish failed for %s: %v", routingKey, err))
		}
	}
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	if notificationID == "" {
		return apperrors.Validation("notification id is required")
	}
	return s.repo.MarkRead(ctx, notificationID, userID)
}
