package app

import (
	"context"
	"fmt"
	"time"

	"khidma/internal/chat/domain"
	"khidma/internal/realtime"
	"khidma/internal/shared/apperrors"
	"khidma/internal/shared/keylock"
	"khidma/internal/shared/util"
)

type EventPusher interface {
	Push(userID string, event interface{})
	PushAll(userIDs []string, event interface{})
}

type ChatService struct {
	chats     domain.ChatRepository
	messages  domain.MessageRepository
	relations domain.RelationshipRepository
	fanout    EventPusher
	locks     *keylock.KeyLock
	logger    *util.Logger
}

func NewChatService(chats domain.ChatRepository, messages domain.MessageRepository, relations domain.RelationshipRepository, fanout EventPusher, logger *util.Logger) *ChatService {
	return &ChatService{
		chats:     chats,
		messages:  messages,
		relations: relations,
		fanout:    fanout,
		locks:     keylock.New(),
		logger:    logger,
	}
}

// pairKey is order-independent so both members serialize on the same lock.
func pairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// CreateOrGetChat returns the chat between the two users, creating it on
// first use. The pair must have an active work relationship.
func (s *ChatService) CreateOrGetChat(ctx context.Context, userID, peerID string) (*domain.Chat, error) {
	instance := "ChatService.CreateOrGetChat"

	if peerID == "" {
		return nil, apperrors.Validation("peer id is required")
	}
	if peerID == userID {
		return nil, apperrors.Validation("cannot open a chat with yourself")
	}

	rel, err := s.relations.Check(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if !rel.CanChat {
		return nil, apperrors.Authorization("no active order or trip connects these users")
	}

	key := pairKey(userID, peerID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	chat, err := s.chats.FindByMembers(ctx, userID, peerID)
	if err == nil {
		return chat, nil
	}
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, err
	}

	now := time.Now()
	created := domain.Chat{
		ID:          util.NewID(),
		MemberOneID: userID,
		MemberTwoID: peerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.chats.Create(ctx, created); err != nil {
		return nil, err
	}

	s.fanout.Push(peerID, realtime.RefreshChatsEvent{Type: realtime.EventRefreshChats})
	s.logger.OK(instance, fmt.Sprintf("chat %s opened between %s and %s", created.ID, userID, peerID))
	return &created, nil
}

// ListChats returns the user's chats with the relationship re-checked per
// chat. A chat whose underlying order or trip ended is excluded entirely;
// the row survives in the store and resurfaces if the users work together
// again.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]domain.ChatView, error) {
	chats, err := s.chats.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ChatView, 0, len(chats))
	for _, chat := range chats {
		peer := chat.PeerOf(userID)
		rel, err := s.relations.Check(ctx, userID, peer)
		if err != nil {
			return nil, err
		}
		if !rel.CanChat {
			continue
		}
		views = append(views, domain.ChatView{
			Chat:    chat,
			PeerID:  peer,
			CanChat: true,
		})
	}
	return views, nil
}

func (s *ChatService) SendMessage(ctx context.Context, senderID string, input domain.SendMessageInput) (*domain.Message, error) {
	instance := "ChatService.SendMessage"

	if input.Text == "" {
		return nil, apperrors.Validation("message text is required")
	}

	chat, err := s.chats.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(senderID) {
		return nil, apperrors.Authorization("not a member of this chat")
	}

	peer := chat.PeerOf(senderID)
	rel, err := s.relations.Check(ctx, senderID, peer)
	if err != nil {
		return nil, err
	}
	if !rel.CanChat {
		return nil, apperrors.Authorization("no active order or trip connects these users")
	}

	message := domain.Message{
		ID:        util.NewID(),
		ChatID:    chat.ID,
		SenderID:  senderID,
		Text:      input.Text,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}
	if err := s.chats.Touch(ctx, chat.ID, message.ID); err != nil {
		s.logger.Warn(instance, fmt.Sprintf("failed to update chat %s last message: %v", chat.ID, err))
	}

	event := realtime.MessageEvent{
		Type:      realtime.EventNewMessage,
		MessageID: message.ID,
		ChatID:    chat.ID,
		SenderID:  senderID,
		Text:      message.Text,
		At:        message.CreatedAt,
	}
	s.fanout.PushAll([]string{chat.MemberOneID, chat.MemberTwoID}, event)

	return &message, nil
}

// ListMessages returns the chat history. Access lapses with the
// relationship: once no order or trip binds the members, the history is
// refused just like new messages are.
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		return nil, apperrors.Authorization("not a member of this chat")
	}

	rel, err := s.relations.Check(ctx, userID, chat.PeerOf(userID))
	if err != nil {
		return nil, err
	}
	if !rel.CanChat {
		return nil, apperrors.Authorization("no active order or trip connects these users")
	}
	return s.messages.ListByChat(ctx, chatID)
}

// DeleteMessage removes a message. Only the sender may delete their own
// messages; both members learn about the deletion.
func (s *ChatService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return apperrors.Authorization("only the sender may delete a message")
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return err
	}

	chat, err := s.chats.GetByID(ctx, message.ChatID)
	if err != nil {
		return nil
	}
	s.fanout.PushAll([]string{chat.MemberOneID, chat.MemberTwoID}, realtime.MessageEvent{
		Type:      realtime.EventMessageDeleted,
		MessageID: messageID,
		ChatID:    message.ChatID,
		SenderID:  message.SenderID,
		At:        time.Now(),
	})
	return nil
}

// MarkRead flips every message the user received in the chat to read and
// tells the peer their messages were seen.
func (s *ChatService) MarkRead(ctx context.Context, userID, chatID string) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(userID) {
		return apperrors.Authorization("not a member of this chat")
	}

	changed, err := s.messages.MarkRead(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if changed == 0 {
		return nil
	}

	s.fanout.Push(chat.PeerOf(userID), realtime.ChatReadEvent{
		Type:     realtime.EventMessagesRead,
		ChatID:   chatID,
		ReaderID: userID,
	})
	return nil
}

// CheckRelationship exposes the gate on its own, for clients that want to
// know whether a chat button should be enabled.
func (s *ChatService) CheckRelationship(ctx context.Context, userID, peerID string) (*domain.Relationship, error) {
	if peerID == "" {
		return nil, apperrors.Validation("peer id is required")
	}
	return s.relations.Check(ctx, userID, peerID)
}
