package api

import (
	"net/http"

	"khidma/internal/shared/jwt"
	"khidma/internal/shared/middleware"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux, tokens *jwt.Manager) {
	auth := middleware.Auth(tokens)

	mux.Handle("POST /orders", auth(http.HandlerFunc(h.CreateOrder)))
	mux.Handle("GET /orders", auth(http.HandlerFunc(h.ListOrders)))
	mux.Handle("GET /orders/artisan", auth(http.HandlerFunc(h.ListOrdersForArtisan)))
	mux.Handle("GET /orders/{orderId}", auth(http.HandlerFunc(h.GetOrder)))
	mux.Handle("PUT /orders/{orderId}/accept", auth(http.HandlerFunc(h.AcceptOffer)))
	mux.Handle("PUT /orders/{orderId}/reject", auth(http.HandlerFunc(h.RejectOrder)))
	mux.Handle("PUT /orders/{orderId}/cancel", auth(http.HandlerFunc(h.CancelOrder)))
	mux.Handle("PUT /orders/{orderId}/complete", auth(http.HandlerFunc(h.CompleteOrder)))

	mux.Handle("POST /offers", auth(http.HandlerFunc(h.CreateOffer)))
	mux.Handle("GET /offers", auth(http.HandlerFunc(h.ListOffersByArtisan)))
	mux.Handle("GET /orders/{orderId}/offers", auth(http.HandlerFunc(h.ListOffersForOrder)))
}
