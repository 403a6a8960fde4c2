package app

import (
	"context"
	"fmt"
	"time"

	notifdomain "khidma/internal/notification/domain"
	"khidma/internal/order/domain"
	"khidma/internal/realtime"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/keylock"
	"khidma/internal/shared/util"
)

type EventPusher interface {
	Push(userID string, event interface{})
	PushAll(userIDs []string, event interface{})
}

type OrderService struct {
	orders   domain.OrderRepository
	offers   domain.OfferRepository
	locks    *keylock.KeyLock
	fanout   EventPusher
	notifier notifdomain.Notifier
	logger   *util.Logger
}

func NewOrderService(orders domain.OrderRepository, offers domain.OfferRepository, fanout EventPusher, notifier notifdomain.Notifier, logger *util.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		offers:   offers,
		locks:    keylock.New(),
		fanout:   fanout,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, clientID string, input domain.CreateOrderInput) (*domain.Order, error) {
	instance := "OrderService.CreateOrder"

	if len(input.Professions) == 0 {
		return nil, apperrors.Validation("at least one profession is required")
	}
	for _, p := range input.Professions {
		if !validProfession(p) {
			return nil, apperrors.Validation(fmt.Sprintf("invalid profession %q", p))
		}
	}
	if input.Wilaya == "" || input.Address == "" || input.Description == "" {
		return nil, apperrors.Validation("wilaya, address and description are required")
	}
	if input.MaxPrice != nil && *input.MaxPrice < 0 {
		return nil, apperrors.Validation("maxPrice must not be negative")
	}

	now := time.Now()
	order := domain.Order{
		ID:          util.NewID(),
		ClientID:    clientID,
		Professions: input.Professions,
		Wilaya:      input.Wilaya,
		Address:     input.Address,
		Description: input.Description,
		MaxPrice:    input.MaxPrice,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.ArtisanID != "" {
		order.ArtisanID = &input.ArtisanID
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error(instance, "failed to create order", err)
		return nil, apperrors.Internal("failed to create order", err)
	}

	if order.ArtisanID != nil {
		s.notifier.Notify(ctx, notifdomain.Input{
			UserID:     *order.ArtisanID,
			FromUserID: clientID,
			Kind:       notifdomain.KindOrderRequested,
			Title:      "New order",
			Body:       "A client requested your services",
			RedirectID: order.ID,
		})
	}

	s.logger.OK(instance, fmt.Sprintf("order %s created by client %s (wilaya=%s)", order.ID, clientID, order.Wilaya))
	return &order, nil
}

// CreateOffer registers an artisan's bid. The one-offer-per-(artisan, order)
// invariant is checked under the order's lock and backed by a unique index.
func (s *OrderService) CreateOffer(ctx context.Context, artisanID string, input domain.CreateOfferInput) (*domain.Offer, error) {
	instance := "OrderService.CreateOffer"

	if input.OrderID == "" || input.Price <= 0 {
		return nil, apperrors.Validation("order and a positive price are required")
	}

	s.locks.Lock(input.OrderID)
	defer s.locks.Unlock(input.OrderID)

	order, err := s.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPending {
		return nil, apperrors.InvalidState(fmt.Sprintf("order is %s, offers are closed", order.Status))
	}

	existing, err := s.offers.FindByArtisanAndOrder(ctx, artisanID, input.OrderID)
	if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Duplicate("an offer for this order already exists")
	}

	offer := domain.Offer{
		ID:          util.NewID(),
		ArtisanID:   artisanID,
		OrderID:     input.OrderID,
		Price:       input.Price,
		Description: input.Description,
		Status:      domain.OfferPending,
		CreatedAt:   time.Now(),
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifdomain.Input{
		UserID:     order.ClientID,
		FromUserID: artisanID,
		Kind:       notifdomain.KindOfferAdded,
		Title:      "New offer",
		Body:       fmt.Sprintf("An artisan offered %.0f for your order", offer.Price),
		RedirectID: order.ID,
	})
	s.fanout.Push(order.ClientID, realtime.OfferEvent{
		Type:      realtime.EventOfferReceived,
		OfferID:   offer.ID,
		OrderID:   order.ID,
		ArtisanID: artisanID,
		Price:     offer.Price,
		At:        offer.CreatedAt,
	})

	s.logger.OK(instance, fmt.Sprintf("offer %s submitted on order %s by artisan %s", offer.ID, order.ID, artisanID))
	return &offer, nil
}

// AcceptOffer is the client's acceptance of a bid. The pending->accepted
// step is a conditional update, so of two concurrent acceptances exactly one
// succeeds.
func (s *OrderService) AcceptOffer(ctx context.Context, orderID, actingClientID, chosenArtisanID string) (*domain.Order, error) {
	instance := "OrderService.AcceptOffer"

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != actingClientID {
		return nil, apperrors.Authorization("only the order's client may accept an offer")
	}
	if order.Status != domain.StatusPending {
		return nil, apperrors.InvalidState(fmt.Sprintf("order is already %s", order.Status))
	}

	artisanID := chosenArtisanID
	if order.ArtisanID != nil {
		artisanID = *order.ArtisanID
	}
	if artisanID == "" {
		return nil, apperrors.Validation("an artisan must be chosen for an open-bid order")
	}

	if err := s.orders.AcceptPending(ctx, orderID, artisanID); err != nil {
		return nil, err
	}
	order.Status = domain.StatusAccepted
	order.ArtisanID = &artisanID

	// settle the bids: the winner's offer flips to accepted, the rest to
	// rejected. A direct-order accept has no winning offer, so every pending
	// bid is rejected.
	winnerID := ""
	if winner, err := s.offers.FindByArtisanAndOrder(ctx, artisanID, orderID); err == nil {
		winnerID = winner.ID
	}
	if err := s.offers.SettleForOrder(ctx, orderID, winnerID); err != nil {
		s.logger.Warn(instance, fmt.Sprintf("failed to settle offers for order %s: %v", orderID, err))
	}

	s.notifier.Notify(ctx, notifdomain.Input{
		UserID:     artisanID,
		FromUserID: actingClientID,
		Kind:       notifdomain.KindOfferAccepted,
		Title:      "Offer accepted",
		Body:       "The client accepted your offer",
		RedirectID: orderID,
	})
	s.broadcast(order, realtime.EventOrderAccepted, "")

	s.logger.OK(instance, fmt.Sprintf("order %s accepted with artisan %s", orderID, artisanID))
	return order, nil
}

// RejectOrder is the bound artisan declining the work.
func (s *OrderService) RejectOrder(ctx context.Context, orderID, actingArtisanID, reason string) (*domain.Order, error) {
	if reason == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ArtisanID == nil || *order.ArtisanID != actingArtisanID {
		return nil, apperrors.Authorization("only the order's artisan may reject it")
	}
	if order.Status.Terminal() {
		return nil, apperrors.InvalidState(fmt.Sprintf("order is already %s", order.Status))
	}

	cancellation := &domain.Cancellation{
		Reason:      reason,
		CancelledBy: "artisan",
		Type:        "rejected",
		Date:        time.Now(),
	}
	if err := s.orders.Finalize(ctx, orderID, domain.StatusRejected, cancellation); err != nil {
		return nil, err
	}
	order.Status = domain.StatusRejected
	order.Cancellation = cancellation

	s.notifier.Notify(ctx, notifdomain.Input{
		UserID:     order.ClientID,
		FromUserID: actingArtisanID,
		Kind:       notifdomain.KindOrderRejected,
		Title:      "Order rejected",
		Body:       reason,
		RedirectID: orderID,
	})
	s.broadcast(order, realtime.EventOrderRejected, reason)
	return order, nil
}

// CancelOrder may come from either party.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, actingUserID, reason string) (*domain.Order, error) {
	if reason == "" {
		return nil, apperrors.Validation("a cancellation reason is required")
	}

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var cancelledBy, notifyUser, kind string
	switch {
	case order.ClientID == actingUserID:
		cancelledBy = "client"
		kind = notifdomain.KindClientOrderCancel
		if order.ArtisanID != nil {
			notifyUser = *order.ArtisanID
		}
	case order.ArtisanID != nil && *order.ArtisanID == actingUserID:
		cancelledBy = "artisan"
		kind = notifdomain.KindOrderCancelled
		notifyUser = order.ClientID
	default:
		return nil, apperrors.Authorization("only the client or the bound artisan may cancel")
	}

	if order.Status.Terminal() {
		return nil, apperrors.InvalidState(fmt.Sprintf("order is already %s", order.Status))
	}

	cancellation := &domain.Cancellation{
		Reason:      reason,
		CancelledBy: cancelledBy,
		Type:        "canceled",
		Date:        time.Now(),
	}
	if err := s.orders.Finalize(ctx, orderID, domain.StatusCanceled, cancellation); err != nil {
		return nil, err
	}
	order.Status = domain.StatusCanceled
	order.Cancellation = cancellation

	if notifyUser != "" {
		s.notifier.Notify(ctx, notifdomain.Input{
			UserID:     notifyUser,
			FromUserID: actingUserID,
			Kind:       kind,
			Title:      "Order cancelled",
			Body:       reason,
			RedirectID: orderID,
		})
	}
	s.broadcast(order, realtime.EventOrderCancelled, reason)
	return order, nil
}

// CompleteOrder closes an accepted order; either bound party may call it.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID, actingUserID string) (*domain.Order, error) {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	isClient := order.ClientID == actingUserID
	isArtisan := order.ArtisanID != nil && *order.ArtisanID == actingUserID
	if !isClient && !isArtisan {
		return nil, apperrors.Authorization("only the client or the bound artisan may complete")
	}
	if order.Status != domain.StatusAccepted {
		return nil, apperrors.InvalidState("only an accepted order can be completed")
	}

	if err := s.orders.Finalize(ctx, orderID, domain.StatusCompleted, nil); err != nil {
		return nil, err
	}
	order.Status = domain.StatusCompleted

	counterpart := order.ClientID
	if isClient && order.ArtisanID != nil {
		counterpart = *order.ArtisanID
	}
	s.notifier.Notify(ctx, notifdomain.Input{
		UserID:     counterpart,
		FromUserID: actingUserID,
		Kind:       notifdomain.KindOrderCompleted,
		Title:      "Order completed",
		Body:       "The order was marked as completed",
		RedirectID: orderID,
	})
	s.broadcast(order, realtime.EventOrderCompleted, "")
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

func (s *OrderService) ListOrdersByClient(ctx context.Context, clientID string) ([]domain.Order, error) {
	return s.orders.ListByClient(ctx, clientID)
}

func (s *OrderService) ListOrdersForArtisan(ctx context.Context, artisanID string, professions []string, wilaya string) ([]domain.Order, error) {
	return s.orders.ListForArtisan(ctx, artisanID, professions, wilaya)
}

func (s *OrderService) ListOffersForOrder(ctx context.Context, orderID string) ([]domain.Offer, error) {
	return s.offers.ListByOrder(ctx, orderID)
}

func (s *OrderService) ListOffersByArtisan(ctx context.Context, artisanID string) ([]domain.Offer, error) {
	return s.offers.ListByArtisan(ctx, artisanID)
}

func (s *OrderService) broadcast(order *domain.Order, eventType, reason string) {
	event := realtime.OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
		Status:  string(order.Status),
		Reason:  reason,
		At:      time.Now(),
	}
	recipients := []string{order.ClientID}
	if order.ArtisanID != nil {
		recipients = append(recipients, *order.ArtisanID)
	}
	s.fanout.PushAll(recipients, event)
}

func validProfession(p string) bool {
	for _, known := range domain.Professions {
		if known == p {
			return true
		}
	}
	return false
}
