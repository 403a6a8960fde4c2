package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	notifdomain "khidma/internal/notification/domain"
	"khidma/internal/order/domain"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/util"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = &order
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, apperrors.NotFound("order not found")
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) ListByClient(_ context.Context, clientID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.ClientID == clientID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListForArtisan(_ context.Context, artisanID string, _ []string, _ string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.ArtisanID != nil && *o.ArtisanID == artisanID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) AcceptPending(_ context.Context, orderID, artisanID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || order.Status != domain.StatusPending {
		return apperrors.InvalidState("order is no longer pending")
	}
	order.Status = domain.StatusAccepted
	order.ArtisanID = &artisanID
	return nil
}

func (r *fakeOrderRepo) Finalize(_ context.Context, orderID string, status domain.Status, cancellation *domain.Cancellation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || order.Status.Terminal() {
		return apperrors.InvalidState("order is already finalized")
	}
	order.Status = status
	order.Cancellation = cancellation
	return nil
}

type fakeOfferRepo struct {
	mu     sync.Mutex
	offers map[string]*domain.Offer
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{offers: make(map[string]*domain.Offer)}
}

func (r *fakeOfferRepo) Create(_ context.Context, offer domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.ArtisanID == offer.ArtisanID && o.OrderID == offer.OrderID {
			return apperrors.Duplicate("an offer for this order already exists")
		}
	}
	r.offers[offer.ID] = &offer
	return nil
}

func (r *fakeOfferRepo) GetByID(_ context.Context, offerID string) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.offers[offerID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, apperrors.NotFound("offer not found")
}

func (r *fakeOfferRepo) FindByArtisanAndOrder(_ context.Context, artisanID, orderID string) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.ArtisanID == artisanID && o.OrderID == orderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("offer not found")
}

func (r *fakeOfferRepo) ListByOrder(_ context.Context, orderID string) ([]domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Offer
	for _, o := range r.offers {
		if o.OrderID == orderID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOfferRepo) ListByArtisan(_ context.Context, artisanID string) ([]domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Offer
	for _, o := range r.offers {
		if o.ArtisanID == artisanID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOfferRepo) SettleForOrder(_ context.Context, orderID, acceptedOfferID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.OrderID != orderID || o.Status != domain.OfferPending {
			continue
		}
		if o.ID == acceptedOfferID {
			o.Status = domain.OfferAccepted
		} else {
			o.Status = domain.OfferRejected
		}
	}
	return nil
}

type fakePusher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *fakePusher) Push(_ string, event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePusher) PushAll(userIDs []string, event interface{}) {
	for range userIDs {
		p.Push("", event)
	}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notifdomain.Input
}

func (n *fakeNotifier) Notify(_ context.Context, in notifdomain.Input) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, in)
}

type OrderServiceSuite struct {
	suite.Suite
	orders   *fakeOrderRepo
	offers   *fakeOfferRepo
	pusher   *fakePusher
	notifier *fakeNotifier
	service  *OrderService
	ctx      context.Context
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.orders = newFakeOrderRepo()
	s.offers = newFakeOfferRepo()
	s.pusher = &fakePusher{}
	s.notifier = &fakeNotifier{}
	s.service = NewOrderService(s.orders, s.offers, s.pusher, s.notifier, util.NewLogger())
	s.ctx = context.Background()
}

func (s *OrderServiceSuite) createOrder() *domain.Order {
	order, err := s.service.CreateOrder(s.ctx, "client-1", domain.CreateOrderInput{
		Professions: []string{"plumber"},
		Wilaya:      "Algiers",
		Address:     "Rue Didouche Mourad 12",
		Description: "leaking kitchen sink",
	})
	s.Require().NoError(err)
	return order
}

func (s *OrderServiceSuite) TestCreateOrderValidation() {
	_, err := s.service.CreateOrder(s.ctx, "client-1", domain.CreateOrderInput{
		Wilaya: "Algiers", Address: "x", Description: "y",
	})
	s.True(apperrors.IsKind(err, apperrors.KindValidation))

	_, err = s.service.CreateOrder(s.ctx, "client-1", domain.CreateOrderInput{
		Professions: []string{"wizard"}, Wilaya: "Algiers", Address: "x", Description: "y",
	})
	s.True(apperrors.IsKind(err, apperrors.KindValidation))

	_, err = s.service.CreateOrder(s.ctx, "client-1", domain.CreateOrderInput{
		Professions: []string{"plumber"},
	})
	s.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (s *OrderServiceSuite) TestDuplicateOffer() {
	order := s.createOrder()

	_, err := s.service.CreateOffer(s.ctx, "artisan-1", domain.CreateOfferInput{OrderID: order.ID, Price: 50})
	s.Require().NoError(err)

	_, err = s.service.CreateOffer(s.ctx, "artisan-1", domain.CreateOfferInput{OrderID: order.ID, Price: 60})
	s.True(apperrors.IsKind(err, apperrors.KindDuplicate))
}

func (s *OrderServiceSuite) TestOpenBidLifecycle() {
	order := s.createOrder()

	offer, err := s.service.CreateOffer(s.ctx, "artisan-1", domain.CreateOfferInput{OrderID: order.ID, Price: 50})
	s.Require().NoError(err)

	accepted, err := s.service.AcceptOffer(s.ctx, order.ID, "client-1", "artisan-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusAccepted, accepted.Status)
	s.Require().NotNil(accepted.ArtisanID)
	s.Equal("artisan-1", *accepted.ArtisanID)

	settled, err := s.service.ListOffersForOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(settled, 1)
	s.Equal(offer.ID, settled[0].ID)
	s.Equal(domain.OfferAccepted, settled[0].Status)

	completed, err := s.service.CompleteOrder(s.ctx, order.ID, "artisan-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, completed.Status)

	// terminal order: further transitions fail
	_, err = s.service.RejectOrder(s.ctx, order.ID, "artisan-1", "changed my mind")
	s.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (s *OrderServiceSuite) TestDirectAcceptRejectsRivalOffers() {
	order, err := s.service.CreateOrder(s.ctx, "client-1", domain.CreateOrderInput{
		ArtisanID:   "artisan-1",
		Professions: []string{"plumber"},
		Wilaya:      "Algiers",
		Address:     "Rue Didouche Mourad 12",
		Description: "leaking kitchen sink",
	})
	s.Require().NoError(err)

	// a rival bids even though the order is bound to artisan-1
	rival, err := s.service.CreateOffer(s.ctx, "artisan-2", domain.CreateOfferInput{OrderID: order.ID, Price: 30})
	s.Require().NoError(err)

	accepted, err := s.service.AcceptOffer(s.ctx, order.ID, "client-1", "")
	s.Require().NoError(err)
	s.Require().NotNil(accepted.ArtisanID)
	s.Equal("artisan-1", *accepted.ArtisanID)

	// the bound artisan never bid, so no offer wins and the rival's is rejected
	settled, err := s.service.ListOffersForOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(settled, 1)
	s.Equal(rival.ID, settled[0].ID)
	s.Equal(domain.OfferRejected, settled[0].Status)
}

func (s *OrderServiceSuite) TestAcceptRequiresClient() {
	order := s.createOrder()
	_, err := s.service.AcceptOffer(s.ctx, order.ID, "artisan-1", "artisan-1")
	s.True(apperrors.IsKind(err, apperrors.KindAuthorization))
}

func (s *OrderServiceSuite) TestAcceptOpenBidWithoutArtisanFails() {
	order := s.createOrder()
	_, err := s.service.AcceptOffer(s.ctx, order.ID, "client-1", "")
	s.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (s *OrderServiceSuite) TestRejectOnlyByBoundArtisan() {
	order := s.createOrder()
	_, err := s.service.AcceptOffer(s.ctx, order.ID, "client-1", "artisan-1")
	s.Require().NoError(err)

	_, err = s.service.RejectOrder(s.ctx, order.ID, "artisan-2", "too far")
	s.True(apperrors.IsKind(err, apperrors.KindAuthorization))

	rejected, err := s.service.RejectOrder(s.ctx, order.ID, "artisan-1", "too far")
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, rejected.Status)
	s.Require().NotNil(rejected.Cancellation)
	s.Equal("rejected", rejected.Cancellation.Type)
	s.Equal("artisan", rejected.Cancellation.CancelledBy)
}

func (s *OrderServiceSuite) TestRejectRequiresReason() {
	order := s.createOrder()
	_, err := s.service.RejectOrder(s.ctx, order.ID, "artisan-1", "")
	s.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (s *OrderServiceSuite) TestCancelByEitherParty() {
	order := s.createOrder()
	_, err := s.service.AcceptOffer(s.ctx, order.ID, "client-1", "artisan-1")
	s.Require().NoError(err)

	cancelled, err := s.service.CancelOrder(s.ctx, order.ID, "client-1", "no longer needed")
	s.Require().NoError(err)
	s.Equal(domain.StatusCanceled, cancelled.Status)
	s.Require().NotNil(cancelled.Cancellation)
	s.Equal("client", cancelled.Cancellation.CancelledBy)
	s.Equal("canceled", cancelled.Cancellation.Type)

	_, err = s.service.CancelOrder(s.ctx, order.ID, "artisan-1", "again")
	s.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (s *OrderServiceSuite) TestCancelByStrangerRejected() {
	order := s.createOrder()
	_, err := s.service.CancelOrder(s.ctx, order.ID, "someone-else", "reason")
	s.True(apperrors.IsKind(err, apperrors.KindAuthorization))
}

func (s *OrderServiceSuite) TestCompleteOnlyFromAccepted() {
	order := s.createOrder()
	_, err := s.service.CompleteOrder(s.ctx, order.ID, "client-1")
	s.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (s *OrderServiceSuite) TestCancellationPresentOnlyWhenFinalized() {
	order := s.createOrder()
	s.Nil(order.Cancellation)

	accepted, err := s.service.AcceptOffer(s.ctx, order.ID, "client-1", "artisan-1")
	s.Require().NoError(err)
	s.Nil(accepted.Cancellation)

	completed, err := s.service.CompleteOrder(s.ctx, order.ID, "client-1")
	s.Require().NoError(err)
	s.Nil(completed.Cancellation)
}

func (s *OrderServiceSuite) TestConcurrentAcceptSingleWinner() {
	order := s.createOrder()
	_, err := s.service.CreateOffer(s.ctx, "artisan-1", domain.CreateOfferInput{OrderID: order.ID, Price: 40})
	s.Require().NoError(err)
	_, err = s.service.CreateOffer(s.ctx, "artisan-2", domain.CreateOfferInput{OrderID: order.ID, Price: 45})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, artisan := range []string{"artisan-1", "artisan-2"} {
		wg.Add(1)
		go func(i int, artisan string) {
			defer wg.Done()
			_, errs[i] = s.service.AcceptOffer(s.ctx, order.ID, "client-1", artisan)
		}(i, artisan)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			s.True(apperrors.IsKind(err, apperrors.KindInvalidState))
		}
	}
	s.Equal(1, winners)

	final, err := s.service.GetOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusAccepted, final.Status)
}
