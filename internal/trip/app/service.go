package app

import (
	"context"
	"fmt"
	"time"

	notifdomain "khidma/internal/notification/domain"
	"khidma/internal/realtime"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/keylock"
	"khidma/internal/shared/util"
	"khidma/internal/trip/domain"
)

type EventPusher interface {
	Push(userID string, event interface{})
	PushAll(userIDs []string, event interface{})
}

type TripService struct {
	trips    domain.TripRepository
	drivers  domain.DriverRepository
	locks    *keylock.KeyLock
	fanout   EventPusher
	notifier notifdomain.Notifier
	logger   *util.Logger
}

func NewTripService(trips domain.TripRepository, drivers domain.DriverRepository, fanout EventPusher, notifier notifdomain.Notifier, logger *util.Logger) *TripService {
	return &TripService{
		trips:    trips,
		drivers:  drivers,
		locks:    keylock.New(),
		fanout:   fanout,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *TripService) Create(ctx context.Context, clientID string, input domain.CreateTripInput) (*domain.Trip, error) {
	instance := "TripService.Create"

	if err := validateCreate(input); err != nil {
		s.logger.Warn(instance, err.Error())
		return nil, err
	}

	placesNumber := input.PlacesNumber
	if placesNumber == 0 {
		placesNumber = 1
	}

	now := time.Now()
	trip := domain.Trip{
		ID:            util.NewID(),
		ClientID:      clientID,
		StartLocation: input.StartLocation,
		EndLocation:   input.EndLocation,
		TripType:      input.TripType,
		VehicleTypes:  input.VehicleTypes,
		Description:   input.Description,
		PlacesNumber:  placesNumber,
		Price:         input.Price,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		s.logger.Error(instance, "failed to create trip", err)
		return nil, apperrors.Internal("failed to create trip", err)
	}

	s.logger.OK(instance, fmt.Sprintf("trip %s created by client %s (type=%s, price=%.0f)",
		trip.ID, clientID, trip.TripType, trip.Price))

	return &trip, nil
}

// ChangeStatus drives the trip state machine. Transitions on one trip are
// serialized under its key; the repository guards the same conditions with
// conditional updates so racing instances cannot both win.
func (s *TripService) ChangeStatus(ctx context.Context, tripID, actingUserID string, input domain.ChangeStatusInput) (*domain.Trip, error) {
	newStatus := domain.Status(input.Status)
	if !newStatus.Valid() || newStatus == domain.StatusPending {
		return nil, apperrors.Validation(fmt.Sprintf("invalid target status %q", input.Status))
	}

	s.locks.Lock(tripID)
	defer s.locks.Unlock(tripID)

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.Status.Terminal() {
		return nil, apperrors.InvalidState(fmt.Sprintf("trip is already %s", trip.Status))
	}

	if trip.Status == domain.StatusPending {
		return s.transitionFromPending(ctx, trip, actingUserID, newStatus, input)
	}
	return s.transitionActive(ctx, trip, actingUserID, newStatus, input)
}

// transitionFromPending covers driver acceptance and the lightweight client
// cancellation of a trip nobody accepted yet.
func (s *TripService) transitionFromPending(ctx context.Context, trip *domain.Trip, actingUserID string, newStatus domain.Status, input domain.ChangeStatusInput) (*domain.Trip, error) {
	instance := "TripService.ChangeStatus"

	if newStatus == domain.StatusCancelled {
		if trip.ClientID != actingUserID {
			return nil, apperrors.Authorization("only the client may cancel a pending trip")
		}
		// no driver relationship existed yet, so no audit record
		if err := s.trips.UpdateStatus(ctx, trip.ID, domain.StatusCancelled); err != nil {
			return nil, err
		}
		trip.Status = domain.StatusCancelled
		s.broadcast(ctx, trip, actingUserID)
		return trip, nil
	}

	if newStatus == domain.StatusCompleted {
		return nil, apperrors.InvalidState("trip cannot complete before a driver accepts")
	}

	driver, err := s.resolveAcceptingDriver(ctx, actingUserID, input.DriverID)
	if err != nil {
		return nil, err
	}

	if err := s.trips.ClaimPending(ctx, trip.ID, driver.ID, newStatus); err != nil {
		return nil, err
	}
	trip.DriverID = &driver.ID
	trip.Status = newStatus

	s.logger.OK(instance, fmt.Sprintf("driver %s accepted trip %s (status=%s)", driver.ID, trip.ID, newStatus))

	s.notifier.Notify(ctx, notifdomain.Input{
		UserID:     trip.ClientID,
		FromUserID: driver.UserID,
		Kind:       notifdomain.KindTripAccepted,
		Title:      "Trip accepted",
		Body:       "A driver accepted your trip",
		RedirectID: trip.ID,
	})
	s.broadcast(ctx, trip, actingUserID)
	return trip, nil
}

func (s *TripService) transitionActive(ctx context.Context, trip *domain.Trip, actingUserID string, newStatus domain.Status, input domain.ChangeStatusInput) (*domain.Trip, error) {
	instance := "TripService.ChangeStatus"

	isClient := trip.ClientID == actingUserID
	isAssigned, assignedDriver := s.isAssignedDriver(ctx, trip, actingUserID)
	if !isClient && !isAssigned {
		return nil, apperrors.Authorization("only the client or the assigned driver may change this trip")
	}

	if newStatus == domain.StatusCancelled {
		reason := input.Reason
		if reason == "" {
			reason = "unspecified"
		}
		record := domain.CancelledTrip{
			ID:          util.NewID(),
			TripID:      trip.ID,
			CancelledBy: actingUserID,
			Reason:      reason,
			CreatedAt:   time.Now(),
		}
		// status flip and audit record land together or not at all
		if err := s.trips.Cancel(ctx, trip.ID, record); err != nil {
			return nil, err
		}
	} else {
		if err := s.trips.UpdateStatus(ctx, trip.ID, newStatus); err != nil {
			return nil, err
		}
	}
	trip.Status = newStatus

	s.logger.Info(instance, fmt.Sprintf("trip %s moved to %s by %s", trip.ID, newStatus, actingUserID))

	counterpart := trip.ClientID
	if isClient && assignedDriver != nil {
		counterpart = assignedDriver.UserID
	}
	s.notifier.Notify(ctx, notifdomain.Input{
		UserID:     counterpart,
		FromUserID: actingUserID,
		Kind:       notifdomain.KindTripStatusChanged,
		Title:      "Trip update",
		Body:       fmt.Sprintf("Trip status changed to %s", newStatus),
		RedirectID: trip.ID,
	})
	s.broadcast(ctx, trip, actingUserID)
	return trip, nil
}

// GetActive returns the caller's one in-flight trip, per role.
func (s *TripService) GetActive(ctx context.Context, userID, role string) (*domain.Trip, error) {
	if role == "driver" {
		driver, err := s.drivers.GetByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return s.trips.GetActiveByDriver(ctx, driver.ID)
	}
	return s.trips.GetActiveByClient(ctx, userID)
}

func (s *TripService) GetByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.trips.GetByID(ctx, tripID)
}

// ListOpen returns pending trips plus the caller's own as driver.
func (s *TripService) ListOpen(ctx context.Context, userID string) ([]domain.Trip, error) {
	driver, err := s.drivers.GetByUser(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return s.trips.ListOpenForDriver(ctx, "")
		}
		return nil, err
	}
	return s.trips.ListOpenForDriver(ctx, driver.ID)
}

// SetDriverAvailability persists the authoritative availability flag. The
// live presence entry is updated separately by the websocket hub.
func (s *TripService) SetDriverAvailability(ctx context.Context, userID string, available bool) error {
	if _, err := s.drivers.GetByUser(ctx, userID); err != nil {
		return err
	}
	return s.drivers.SetAvailability(ctx, userID, available)
}

func (s *TripService) resolveAcceptingDriver(ctx context.Context, actingUserID, requestedDriverID string) (*domain.Driver, error) {
	driver, err := s.drivers.GetByUser(ctx, actingUserID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.Authorization("only a driver may accept a pending trip")
		}
		return nil, err
	}
	if requestedDriverID != "" && requestedDriverID != driver.ID {
		return nil, apperrors.Authorization("a driver may only accept a trip as themselves")
	}
	return driver, nil
}

func (s *TripService) isAssignedDriver(ctx context.Context, trip *domain.Trip, actingUserID string) (bool, *domain.Driver) {
	if trip.DriverID == nil {
		return false, nil
	}
	driver, err := s.drivers.GetByID(ctx, *trip.DriverID)
	if err != nil {
		return false, nil
	}
	return driver.UserID == actingUserID, driver
}

func (s *TripService) broadcast(ctx context.Context, trip *domain.Trip, actingUserID string) {
	event := realtime.TripStatusEvent{
		Type:   realtime.EventTripStatus,
		TripID: trip.ID,
		Status: string(trip.Status),
		At:     time.Now(),
	}
	recipients := []string{trip.ClientID}
	if trip.DriverID != nil {
		event.DriverID = *trip.DriverID
		if driver, err := s.drivers.GetByID(ctx, *trip.DriverID); err == nil {
			recipients = append(recipients, driver.UserID)
		}
	}
	s.fanout.PushAll(recipients, event)
}

func validateCreate(input domain.CreateTripInput) error {
	if input.StartLocation.Name == "" || input.EndLocation.Name == "" {
		return apperrors.Validation("start and end locations are required")
	}
	if input.Price <= 0 {
		return apperrors.Validation("price must be positive")
	}
	if !contains(domain.TransportTypes, input.TripType) {
		return apperrors.Validation(fmt.Sprintf("invalid trip type %q", input.TripType))
	}
	for _, v := range input.VehicleTypes {
		if !contains(domain.VehicleTypes, v) {
			return apperrors.Validation(fmt.Sprintf("invalid vehicle type %q", v))
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
