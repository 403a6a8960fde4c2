package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"khidma/internal/chat/domain"
	"khidma/internal/shared/apperrors"
)

type MessageRepo struct {
	db *pgxpool.Pool
}

func NewMessageRepo(db *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, message domain.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, text, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		message.ID, message.ChatID, message.SenderID, message.Text, message.Read, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, messageID string) (*domain.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, text, read, created_at
		FROM messages
		WHERE id = $1`

	var m domain.Message
	err := r.db.QueryRow(ctx, query, messageID).
		Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.Read, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, text, read, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) Delete(ctx context.Context, messageID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("message not found")
	}
	return nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	query := `
		UPDATE messages
		SET read = true
		WHERE chat_id = $1 AND sender_id <> $2 AND read = false`

	tag, err := r.db.Exec(ctx, query, chatID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}
