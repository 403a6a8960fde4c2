package api

import (
	"net/http"

	"khidma/internal/notification/app"
	"khidma/internal/shared/jwt"
	"khidma/internal/shared/middleware"
	"khidma/internal/shared/util"
)

type Handler struct {
	service *app.NotificationService
}

func NewHandler(service *app.NotificationService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", notifications)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.service.MarkRead(r.Context(),
		r.PathValue("notificationId"), middleware.UserID(r.Context()))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "notification read", nil)
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, tokens *jwt.Manager) {
	auth := middleware.Auth(tokens)

	mux.Handle("GET /notifications", auth(http.HandlerFunc(h.ListNotifications)))
	mux.Handle("PUT /notifications/{notificationId}/read", auth(http.HandlerFunc(h.MarkRead)))
}
