package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"khidma/internal/chat/domain"
	"khidma/internal/shared/apperrors"
)

type ChatRepo struct {
	db *pgxpool.Pool
}

func NewChatRepo(db *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatSelect = `
	SELECT c.id, c.member_one_id, c.member_two_id, c.created_at, c.updated_at,
	       m.id, m.chat_id, m.sender_id, m.text, m.read, m.created_at
	FROM chats c
	LEFT JOIN messages m ON m.id = c.last_message_id`

func (r *ChatRepo) Create(ctx context.Context, chat domain.Chat) error {
	query := `
		INSERT INTO chats (id, member_one_id, member_two_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		chat.ID, chat.MemberOneID, chat.MemberTwoID, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

func (r *ChatRepo) GetByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	row := r.db.QueryRow(ctx, chatSelect+` WHERE c.id = $1`, chatID)
	return scanChat(row)
}

func (r *ChatRepo) FindByMembers(ctx context.Context, userA, userB string) (*domain.Chat, error) {
	query := chatSelect + `
		WHERE (c.member_one_id = $1 AND c.member_two_id = $2)
		   OR (c.member_one_id = $2 AND c.member_two_id = $1)`

	row := r.db.QueryRow(ctx, query, userA, userB)
	return scanChat(row)
}

func (r *ChatRepo) ListByMember(ctx context.Context, userID string) ([]domain.Chat, error) {
	query := chatSelect + `
		WHERE c.member_one_id = $1 OR c.member_two_id = $1
		ORDER BY c.updated_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, rows.Err()
}

func (r *ChatRepo) Touch(ctx context.Context, chatID, lastMessageID string) error {
	query := `UPDATE chats SET last_message_id = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, chatID, lastMessageID)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("chat not found")
	}
	return nil
}

func scanChat(row pgx.Row) (*domain.Chat, error) {
	var (
		chat      domain.Chat
		msgID     *string
		msgChat   *string
		msgSender *string
		msgText   *string
		msgRead   *bool
		msgAt     *time.Time
	)

	err := row.Scan(
		&chat.ID, &chat.MemberOneID, &chat.MemberTwoID, &chat.CreatedAt, &chat.UpdatedAt,
		&msgID, &msgChat, &msgSender, &msgText, &msgRead, &msgAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("chat not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chat: %w", err)
	}

	if msgID != nil {
		chat.LastMessage = &domain.Message{
			ID:       *msgID,
			ChatID:   *msgChat,
			SenderID: *msgSender,
			Text:     *msgText,
			Read:     *msgRead,
		}
		if msgAt != nil {
			chat.LastMessage.CreatedAt = *msgAt
		}
	}
	return &chat, nil
}
