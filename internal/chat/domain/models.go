package domain

import "time"

// RelationshipKind says which entity currently ties two users together.
const (
	RelationOrder = "order"
	RelationTrip  = "trip"
	RelationNone  = "none"
)

// Relationship is the result of the chat authorization check between two
// users. CanChat is true only while an order in accepted or completed state,
// or a trip past the pending stage, binds them.
type Relationship struct {
	CanChat  bool   `json:"canChat"`
	Kind     string `json:"kind"`
	EntityID string `json:"entityId,omitempty"`
}

type Chat struct {
	ID          string    `json:"id"`
	MemberOneID string    `json:"memberOneId"`
	MemberTwoID string    `json:"memberTwoId"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasMember reports whether userID is one of the two chat members.
func (c *Chat) HasMember(userID string) bool {
	return c.MemberOneID == userID || c.MemberTwoID == userID
}

// PeerOf returns the other member of the chat.
func (c *Chat) PeerOf(userID string) string {
	if c.MemberOneID == userID {
		return c.MemberTwoID
	}
	return c.MemberOneID
}

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatView is a chat as seen by one member, with the relationship
// re-evaluated at read time so stale chats surface as read-only.
type ChatView struct {
	Chat
	PeerID  string `json:"peerId"`
	CanChat bool   `json:"canChat"`
}

type SendMessageInput struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}
