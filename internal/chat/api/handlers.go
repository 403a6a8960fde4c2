package api

import (
	"encoding/json"
	"net/http"

	"khidma/internal/chat/app"
	"khidma/internal/chat/domain"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/middleware"
	"khidma/internal/shared/util"
)

type Handler struct {
	service *app.ChatService
}

func NewHandler(service *app.ChatService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PeerID string `json:"peerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.ErrResponseInJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	chat, err := h.service.CreateOrGetChat(r.Context(), middleware.UserID(r.Context()), input.PeerID)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", chat)
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.service.ListChats(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", chats)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListMessages(r.Context(),
		middleware.UserID(r.Context()), r.PathValue("chatId"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", messages)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var input domain.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.ErrResponseInJSON(w, apperrors.Validation("invalid request body"))
		return
	}
	input.ChatID = r.PathValue("chatId")

	message, err := h.service.SendMessage(r.Context(), middleware.UserID(r.Context()), input)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusCreated, "message sent", message)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteMessage(r.Context(),
		middleware.UserID(r.Context()), r.PathValue("messageId"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "message deleted", nil)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.service.MarkRead(r.Context(),
		middleware.UserID(r.Context()), r.PathValue("chatId"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "messages read", nil)
}

func (h *Handler) CheckRelationship(w http.ResponseWriter, r *http.Request) {
	rel, err := h.service.CheckRelationship(r.Context(),
		middleware.UserID(r.Context()), r.URL.Query().Get("peer"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, "", rel)
}
