package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerconnect/server/internal/domain"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) GetThread(ctx context.Context, id string) (*domain.ChatThread, error) {
	query := `
		SELECT id, user_a, user_b, created_at
		FROM chat_threads
		WHERE id = $1`
	var thread domain.ChatThread
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&thread.ID, &thread.UserA, &thread.UserB, &thread.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &thread, err
}

// AppendMessage writes the message and the parent connection's summary in one
// transaction. The message's server-assigned timestamp is reused for the
// summary, so conversation ordering and message ordering always agree.
func (r *ChatRepo) AppendMessage(ctx context.Context, threadID, senderID, content string) (*domain.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning message tx: %w", err)
	}
	defer tx.Rollback(ctx)

	msg := &domain.Message{
		ID:       uuid.New(),
		ThreadID: threadID,
		Sender:   senderID,
		Content:  content,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, thread_id, sender, content, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at`,
		msg.ID, msg.ThreadID, msg.Sender, msg.Content,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE connections
		SET last_message = $2, last_message_at = $3
		WHERE id = $1`,
		threadID, content, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("updating last message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing message tx: %w", err)
	}
	return msg, nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.thread_id, m.sender, m.content, m.created_at,
			u.email, u.display_name
		FROM messages m
		JOIN users u ON m.sender = u.id
		WHERE m.thread_id = $1
		ORDER BY m.created_at ASC, m.id ASC`

	rows, err := r.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ThreadID, &msg.Sender, &msg.Content, &msg.CreatedAt,
			&msg.SenderEmail, &msg.SenderDisplayName,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *ChatRepo) MarkRead(ctx context.Context, threadID, userID string) error {
	query := `
		INSERT INTO thread_reads (thread_id, user_id, last_read_at)
		VALUES ($1, $2, now())
		ON CONFLICT (thread_id, user_id)
		DO UPDATE SET last_read_at = GREATEST(thread_reads.last_read_at, EXCLUDED.last_read_at)`
	_, err := r.pool.Exec(ctx, query, threadID, userID)
	return err
}
