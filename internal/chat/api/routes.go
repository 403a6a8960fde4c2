package api

import (
	"net/http"

	"khidma/internal/shared/jwt"
	"khidma/internal/shared/middleware"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux, tokens *jwt.Manager) {
	auth := middleware.Auth(tokens)

	mux.Handle("POST /chats", auth(http.HandlerFunc(h.CreateChat)))
	mux.Handle("GET /chats", auth(http.HandlerFunc(h.ListChats)))
	mux.Handle("GET /chats/relationship", auth(http.HandlerFunc(h.CheckRelationship)))
	mux.Handle("GET /chats/{chatId}/messages", auth(http.HandlerFunc(h.ListMessages)))
	mux.Handle("POST /chats/{chatId}/messages", auth(http.HandlerFunc(h.SendMessage)))
	mux.Handle("PUT /chats/{chatId}/read", auth(http.HandlerFunc(h.MarkRead)))
	mux.Handle("DELETE /messages/{messageId}", auth(http.HandlerFunc(h.DeleteMessage)))
}
