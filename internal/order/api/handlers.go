package api

import (
	"encoding/json"
	"net/http"

	"khidma/internal/order/app"
	"khidma/internal/order/domain"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/middleware"
	"khidma/internal/shared/util"
)

type Handler struct {
	service *app.OrderService
}

func NewHandler(service *app.OrderService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.ErrResponseInJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	order, err := h.service.CreateOrder(r.Context(), middleware.UserID(r.Context()), input)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusCreated, "order created", order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrdersByClient(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", orders)
}

func (h *Handler) ListOrdersForArtisan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.service.ListOrdersForArtisan(r.Context(),
		middleware.UserID(r.Context()), q["profession"], q.Get("wilaya"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("orderId"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", order)
}

func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ArtisanID string `json:"artisan,omitempty"`
	}
	_ = json.NewDecoder(r.Body).Decode(&input)

	order, err := h.service.AcceptOffer(r.Context(), r.PathValue("orderId"),
		middleware.UserID(r.Context()), input.ArtisanID)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "offer accepted", order)
}

func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&input)

	order, err := h.service.RejectOrder(r.Context(), r.PathValue("orderId"),
		middleware.UserID(r.Context()), input.Reason)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "order rejected", order)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&input)

	order, err := h.service.CancelOrder(r.Context(), r.PathValue("orderId"),
		middleware.UserID(r.Context()), input.Reason)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "order cancelled", order)
}

func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CompleteOrder(r.Context(), r.PathValue("orderId"), middleware.UserID(r.Context()))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "order completed", order)
}

func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateOfferInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.ErrResponseInJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	offer, err := h.service.CreateOffer(r.Context(), middleware.UserID(r.Context()), input)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusCreated, "offer submitted", offer)
}

func (h *Handler) ListOffersForOrder(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListOffersForOrder(r.Context(), r.PathValue("orderId"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", offers)
}

func (h *Handler) ListOffersByArtisan(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListOffersByArtisan(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", offers)
}
