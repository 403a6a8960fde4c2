package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"khidma/internal/presence"
)

// Event names form a closed set. Anything else arriving on the socket is
// rejected with an error event.
const (
	// inbound
	EventAuth            = "auth"
	EventDriverAvailable = "driverAvailable"
	EventUpdateLocation  = "updateLocation"

	// outbound
	EventAuthSuccess    = "auth_success"
	EventError          = "error"
	EventTripStatus     = "tripStatusChanged"
	EventOfferReceived  = "offerReceived"
	EventOrderAccepted  = "orderAccepted"
	EventOrderRejected  = "orderRejected"
	EventOrderCancelled = "orderCancelled"
	EventOrderCompleted = "orderCompleted"
	EventNewMessage     = "newMessage"
	EventMessageDeleted = "messageDeleted"
	EventMessagesRead   = "messagesRead"
	EventRefreshChats   = "refreshChats"
	EventNotification   = "notification"
)

type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type DriverAvailableMessage struct {
	Type        string             `json:"type"`
	Name        string             `json:"name,omitempty"`
	IsAvailable bool               `json:"isAvailable"`
	Coords      *presence.Location `json:"coords,omitempty"`
}

type UpdateLocationMessage struct {
	Type   string            `json:"type"`
	Coords presence.Location `json:"coords"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type AckMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type TripStatusEvent struct {
	Type     string    `json:"type"`
	TripID   string    `json:"tripId"`
	Status   string    `json:"status"`
	DriverID string    `json:"driverId,omitempty"`
	At       time.Time `json:"at"`
}

type OrderEvent struct {
	Type    string    `json:"type"`
	OrderID string    `json:"orderId"`
	Status  string    `json:"status"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

type OfferEvent struct {
	Type      string    `json:"type"`
	OfferID   string    `json:"offerId"`
	OrderID   string    `json:"orderId"`
	ArtisanID string    `json:"artisanId"`
	Price     float64   `json:"price"`
	At        time.Time `json:"at"`
}

type MessageEvent struct {
	Type      string    `json:"type"`
	MessageID string    `json:"messageId"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text,omitempty"`
	At        time.Time `json:"at"`
}

type ChatReadEvent struct {
	Type     string `json:"type"`
	ChatID   string `json:"chatId"`
	ReaderID string `json:"readerId"`
}

type RefreshChatsEvent struct {
	Type string `json:"type"`
}

type NotificationEvent struct {
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Kind       string    `json:"kind"`
	FromUserID string    `json:"fromUserId,omitempty"`
	RedirectID string    `json:"redirectId,omitempty"`
	At         time.Time `json:"at"`
}

// ParseInbound decodes a raw frame into one of the inbound payload types.
// Unknown event names are an error, not a silent drop.
func ParseInbound(raw []byte) (interface{}, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("malformed event frame: %w", err)
	}

	switch head.Type {
	case EventAuth:
		var msg AuthMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case EventDriverAvailable:
		var msg DriverAvailableMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case EventUpdateLocation:
		var msg UpdateLocationMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}
