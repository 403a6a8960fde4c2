package api

import (
	"net/http"

	"khidma/internal/shared/jwt"
	"khidma/internal/shared/middleware"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux, tokens *jwt.Manager) {
	auth := middleware.Auth(tokens)

	mux.Handle("POST /trips", auth(http.HandlerFunc(h.CreateTrip)))
	mux.Handle("GET /trips", auth(http.HandlerFunc(h.ListTrips)))
	mux.Handle("GET /trips/active", auth(http.HandlerFunc(h.GetActiveTrip)))
	mux.Handle("GET /trips/{tripId}", auth(http.HandlerFunc(h.GetTrip)))
	mux.Handle("PUT /trips/{tripId}/status", auth(http.HandlerFunc(h.ChangeStatus)))

	mux.Handle("GET /drivers/available", auth(http.HandlerFunc(h.ListAvailableDrivers)))
	mux.Handle("PUT /drivers/me/availability", auth(http.HandlerFunc(h.SetAvailability)))
}
