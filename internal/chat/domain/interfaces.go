package domain

import "context"

type ChatRepository interface {
	Create(ctx context.Context, chat Chat) error
	GetByID(ctx context.Context, chatID string) (*Chat, error)
	// FindByMembers looks a chat up by its member pair in either order.
	FindByMembers(ctx context.Context, userA, userB string) (*Chat, error)
	ListByMember(ctx context.Context, userID string) ([]Chat, error)
	Touch(ctx context.Context, chatID, lastMessageID string) error
}

type MessageRepository interface {
	Create(ctx context.Context, message Message) error
	GetByID(ctx context.Context, messageID string) (*Message, error)
	ListByChat(ctx context.Context, chatID string) ([]Message, error)
	Delete(ctx context.Context, messageID string) error
	// MarkRead flips every unread message in the chat that was not sent by
	// readerID and returns how many rows changed.
	MarkRead(ctx context.Context, chatID, readerID string) (int64, error)
}

// RelationshipRepository answers whether two users are currently allowed to
// chat, based on the orders and trips that bind them.
type RelationshipRepository interface {
	Check(ctx context.Context, userA, userB string) (*Relationship, error)
}
