package api

import (
	"encoding/json"
	"net/http"

	"khidma/internal/presence"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/middleware"
	"khidma/internal/shared/util"
	"khidma/internal/trip/app"
	"khidma/internal/trip/domain"
)

type Handler struct {
	service  *app.TripService
	registry *presence.Registry
}

func NewHandler(service *app.TripService, registry *presence.Registry) *Handler {
	return &Handler{service: service, registry: registry}
}

func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateTripInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.ErrResponseInJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	trip, err := h.service.Create(r.Context(), middleware.UserID(r.Context()), input)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusCreated, "trip created", trip)
}

func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.service.ListOpen(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", trips)
}

func (h *Handler) GetActiveTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trip, err := h.service.GetActive(ctx, middleware.UserID(ctx), middleware.Role(ctx))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", trip)
}

func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.service.GetByID(r.Context(), r.PathValue("tripId"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", trip)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var input domain.ChangeStatusInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.ErrResponseInJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	trip, err := h.service.ChangeStatus(r.Context(), r.PathValue("tripId"), middleware.UserID(r.Context()), input)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "trip status updated", trip)
}

type availableDriver struct {
	DriverID  string             `json:"driverId"`
	Location  *presence.Location `json:"location,omitempty"`
	UpdatedAt string             `json:"updatedAt"`
}

// ListAvailableDrivers serves the presence snapshot, not the store: the
// registry is the source of truth for who is reachable right now.
func (h *Handler) ListAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.AvailableDrivers()

	out := make([]availableDriver, 0, len(entries))
	for _, e := range entries {
		out = append(out, availableDriver{
			DriverID:  e.UserID,
			Location:  e.Location,
			UpdatedAt: e.LastSeen.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	util.ResponseInJSON(w, http.StatusOK, "", out)
}

func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IsAvailable *bool `json:"isAvailable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.IsAvailable == nil {
		util.ErrResponseInJSON(w, apperrors.Validation("isAvailable must be true or false"))
		return
	}

	userID := middleware.UserID(r.Context())
	if err := h.service.SetDriverAvailability(r.Context(), userID, *input.IsAvailable); err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	if !*input.IsAvailable {
		h.registry.SetAvailability(userID, false, nil)
	}
	util.ResponseInJSON(w, http.StatusOK, "availability updated", map[string]bool{"isAvailable": *input.IsAvailable})
}
