package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	notifdomain "khidma/internal/notification/domain"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/util"
	"khidma/internal/trip/domain"
)

type fakeTripRepo struct {
	mu            sync.Mutex
	trips         map[string]*domain.Trip
	cancellations []domain.CancelledTrip
	cancelErr     error
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[string]*domain.Trip)}
}

func (r *fakeTripRepo) Create(_ context.Context, trip domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips[trip.ID] = &trip
	return nil
}

func (r *fakeTripRepo) GetByID(_ context.Context, tripID string) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok {
		return nil, apperrors.NotFound("trip not found")
	}
	cp := *trip
	return &cp, nil
}

func (r *fakeTripRepo) ClaimPending(_ context.Context, tripID, driverID string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok || trip.Status != domain.StatusPending {
		return apperrors.InvalidState("trip is no longer pending")
	}
	trip.Status = status
	trip.DriverID = &driverID
	return nil
}

func (r *fakeTripRepo) UpdateStatus(_ context.Context, tripID string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok || trip.Status.Terminal() {
		return apperrors.InvalidState("trip is already finalized")
	}
	trip.Status = status
	return nil
}

// Cancel mirrors the transactional repo: either both the flip and the audit
// record land, or neither does.
func (r *fakeTripRepo) Cancel(_ context.Context, tripID string, record domain.CancelledTrip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelErr != nil {
		return r.cancelErr
	}
	trip, ok := r.trips[tripID]
	if !ok || trip.Status.Terminal() {
		return apperrors.InvalidState("trip is already finalized")
	}
	trip.Status = domain.StatusCancelled
	r.cancellations = append(r.cancellations, record)
	return nil
}

func (r *fakeTripRepo) GetActiveByClient(_ context.Context, clientID string) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, trip := range r.trips {
		if trip.ClientID == clientID && trip.Status != domain.StatusCompleted && trip.Status != domain.StatusCancelled {
			cp := *trip
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("no active trip")
}

func (r *fakeTripRepo) GetActiveByDriver(_ context.Context, driverID string) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, trip := range r.trips {
		if trip.DriverID != nil && *trip.DriverID == driverID &&
			trip.Status != domain.StatusPending && !trip.Status.Terminal() {
			cp := *trip
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("no active trip")
}

func (r *fakeTripRepo) ListOpenForDriver(_ context.Context, driverID string) ([]domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Trip
	for _, trip := range r.trips {
		if trip.Status == domain.StatusPending || (trip.DriverID != nil && *trip.DriverID == driverID) {
			out = append(out, *trip)
		}
	}
	return out, nil
}

type fakeDriverRepo struct {
	byID   map[string]*domain.Driver
	byUser map[string]*domain.Driver
}

func newFakeDriverRepo(drivers ...domain.Driver) *fakeDriverRepo {
	r := &fakeDriverRepo{byID: make(map[string]*domain.Driver), byUser: make(map[string]*domain.Driver)}
	for i := range drivers {
		d := drivers[i]
		r.byID[d.ID] = &d
		r.byUser[d.UserID] = &d
	}
	return r
}

func (r *fakeDriverRepo) GetByID(_ context.Context, driverID string) (*domain.Driver, error) {
	if d, ok := r.byID[driverID]; ok {
		return d, nil
	}
	return nil, apperrors.NotFound("driver profile not found")
}

func (r *fakeDriverRepo) GetByUser(_ context.Context, userID string) (*domain.Driver, error) {
	if d, ok := r.byUser[userID]; ok {
		return d, nil
	}
	return nil, apperrors.NotFound("driver profile not found")
}

func (r *fakeDriverRepo) SetAvailability(_ context.Context, userID string, available bool) error {
	d, ok := r.byUser[userID]
	if !ok {
		return apperrors.NotFound("driver profile not found")
	}
	d.IsAvailable = available
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

type TripServiceSuite struct {
	suite.Suite
	repo     *fakeTripRepo
	drivers  *fakeDriverRepo
	pusher   *fakePusher
	notifier *fakeNotifier
	service  *TripService
	ctx      context.Context
}

func TestTripServiceSuite(t *testing.T) {
	suite.Run(t, new(TripServiceSuite))
}

func (s *TripServiceSuite) SetupTest() {
	s.repo = newFakeTripRepo()
	s.drivers = newFakeDriverRepo(
		domain.Driver{ID: "drv-1", UserID: "user-d1", VehicleType: "car"},
		domain.Driver{ID: "drv-2", UserID: "user-d2", VehicleType: "motorcycle"},
	)
	s.pusher = &fakePusher{}
	s.notifier = &fakeNotifier{}
	s.service = NewTripService(s.repo, s.drivers, s.pusher, s.notifier, util.NewLogger())
	s.ctx = context.Background()
}

func (s *TripServiceSuite) createTrip() *domain.Trip {
	trip, err := s.service.Create(s.ctx, "client-1", domain.CreateTripInput{
		StartLocation: domain.GeoPoint{Name: "Bab Ezzouar", Lat: 36.72, Lon: 3.18},
		EndLocation:   domain.GeoPoint{Name: "Hydra", Lat: 36.74, Lon: 3.03},
		TripType:      "passenger",
		VehicleTypes:  []string{"car"},
		Price:         1200,
	})
	s.Require().NoError(err)
	return trip
}

func (s *TripServiceSuite) TestCreatePendingWithoutDriver() {
	trip := s.createTrip()

	s.Equal(domain.StatusPending, trip.Status)
	s.Nil(trip.DriverID)
	s.Equal(1, trip.PlacesNumber)
}

func (s *TripServiceSuite) TestCreateValidation() {
	_, err := s.service.Create(s.ctx, "client-1", domain.CreateTripInput{
		TripType: "passenger", Price: 1000,
	})
	s.True(apperrors.IsKind(err, apperrors.KindValidation))

	_, err = s.service.Create(s.ctx, "client-1", domain.CreateTripInput{
		StartLocation: domain.GeoPoint{Name: "a"},
		EndLocation:   domain.GeoPoint{Name: "b"},
		TripType:      "teleportation",
		Price:         1000,
	})
	s.True(apperrors.IsKind(err, apperrors.KindValidation))

	_, err = s.service.Create(s.ctx, "client-1", domain.CreateTripInput{
		StartLocation: domain.GeoPoint{Name: "a"},
		EndLocation:   domain.GeoPoint{Name: "b"},
		TripType:      "passenger",
	})
	s.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (s *TripServiceSuite) TestDriverAcceptanceBindsDriver() {
	trip := s.createTrip()

	updated, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "confirm"})
	s.Require().NoError(err)
	s.Equal(domain.StatusConfirm, updated.Status)
	s.Require().NotNil(updated.DriverID)
	s.Equal("drv-1", *updated.DriverID)
}

func (s *TripServiceSuite) TestNonDriverCannotAccept() {
	trip := s.createTrip()

	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "random-user", domain.ChangeStatusInput{Status: "confirm"})
	s.True(apperrors.IsKind(err, apperrors.KindAuthorization))
}

func (s *TripServiceSuite) TestCannotAcceptAsAnotherDriver() {
	trip := s.createTrip()

	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "confirm", DriverID: "drv-2"})
	s.True(apperrors.IsKind(err, apperrors.KindAuthorization))
}

func (s *TripServiceSuite) TestCompleteFromPendingRejected() {
	trip := s.createTrip()

	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "completed"})
	s.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (s *TripServiceSuite) TestPendingCancellationHasNoAuditRecord() {
	trip := s.createTrip()

	updated, err := s.service.ChangeStatus(s.ctx, trip.ID, "client-1", domain.ChangeStatusInput{Status: "cancelled"})
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, updated.Status)
	s.Empty(s.repo.cancellations)
}

func (s *TripServiceSuite) TestActiveCancellationWritesExactlyOneAuditRecord() {
	trip := s.createTrip()
	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "in_trip"})
	s.Require().NoError(err)

	_, err = s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "cancelled", Reason: "traffic"})
	s.Require().NoError(err)
	s.Require().Len(s.repo.cancellations, 1)
	s.Equal("traffic", s.repo.cancellations[0].Reason)
	s.Equal("user-d1", s.repo.cancellations[0].CancelledBy)

	// terminal trip: second cancellation fails and writes nothing
	_, err = s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "cancelled"})
	s.True(apperrors.IsKind(err, apperrors.KindInvalidState))
	s.Len(s.repo.cancellations, 1)
}

func (s *TripServiceSuite) TestFailedAuditWriteLeavesTripActive() {
	trip := s.createTrip()
	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "in_trip"})
	s.Require().NoError(err)

	s.repo.cancelErr = errors.New("audit insert failed")
	_, err = s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "cancelled", Reason: "traffic"})
	s.Require().Error(err)

	// the flip rolled back with the audit record: no half-cancelled trip
	stored, err := s.repo.GetByID(s.ctx, trip.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusInTrip, stored.Status)
	s.Empty(s.repo.cancellations)

	s.repo.cancelErr = nil
	updated, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "cancelled", Reason: "traffic"})
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, updated.Status)
	s.Len(s.repo.cancellations, 1)
}

func (s *TripServiceSuite) TestTerminalTripsAreImmutable() {
	trip := s.createTrip()
	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "in_trip"})
	s.Require().NoError(err)
	_, err = s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "completed"})
	s.Require().NoError(err)

	_, err = s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "waiting"})
	s.True(apperrors.IsKind(err, apperrors.KindInvalidState))
}

func (s *TripServiceSuite) TestStrangerCannotTouchActiveTrip() {
	trip := s.createTrip()
	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "confirm"})
	s.Require().NoError(err)

	_, err = s.service.ChangeStatus(s.ctx, trip.ID, "user-d2", domain.ChangeStatusInput{Status: "in_trip"})
	s.True(apperrors.IsKind(err, apperrors.KindAuthorization))
}

func (s *TripServiceSuite) TestDriverNonNullForEveryNonPendingTransition() {
	trip := s.createTrip()

	for _, status := range []string{"confirm", "waiting", "to_customer", "in_trip", "payment", "completed"} {
		updated, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: status})
		s.Require().NoError(err)
		s.Require().NotNil(updated.DriverID, "status %s must keep a bound driver", status)
	}
}

func (s *TripServiceSuite) TestGetActiveSurvivesDisconnect() {
	trip := s.createTrip()
	_, err := s.service.ChangeStatus(s.ctx, trip.ID, "user-d1", domain.ChangeStatusInput{Status: "confirm"})
	s.Require().NoError(err)

	// presence is irrelevant to the store: the trip stays queryable
	active, err := s.service.GetActive(s.ctx, "user-d1", "driver")
	s.Require().NoError(err)
	s.Equal(trip.ID, active.ID)

	active, err = s.service.GetActive(s.ctx, "client-1", "client")
	s.Require().NoError(err)
	s.Equal(trip.ID, active.ID)
}

func (s *TripServiceSuite) TestConcurrentAcceptanceSingleWinner() {
	trip := s.createTrip()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"user-d1", "user-d2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = s.service.ChangeStatus(s.ctx, trip.ID, user, domain.ChangeStatusInput{Status: "confirm"})
		}(i, user)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			// the loser observes a trip that is no longer pending
			s.True(apperrors.IsKind(err, apperrors.KindInvalidState) ||
				apperrors.IsKind(err, apperrors.KindAuthorization))
		}
	}
	s.Equal(1, winners)
}
