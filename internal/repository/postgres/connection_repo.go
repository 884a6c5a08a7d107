package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerconnect/server/internal/domain"
	"github.com/peerconnect/server/internal/repository"
)

type ConnectionRepo struct {
	pool *pgxpool.Pool
}

func NewConnectionRepo(pool *pgxpool.Pool) *ConnectionRepo {
	return &ConnectionRepo{pool: pool}
}

func (r *ConnectionRepo) Create(ctx context.Context, conn *domain.Connection) error {
	query := `
		INSERT INTO connections (id, user_a, user_b, sender, receiver, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		conn.ID, conn.UserA, conn.UserB, conn.Sender, conn.Receiver, conn.Status,
	).Scan(&conn.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repository.ErrConflict
	}
	return err
}

func (r *ConnectionRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	query := `
		SELECT id, user_a, user_b, sender, receiver, status,
			created_at, accepted_at, last_message, last_message_at
		FROM connections
		WHERE id = $1`
	var conn domain.Connection
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conn.ID, &conn.UserA, &conn.UserB, &conn.Sender, &conn.Receiver, &conn.Status,
		&conn.CreatedAt, &conn.AcceptedAt, &conn.LastMessage, &conn.LastMessageAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &conn, err
}

// Accept flips status to accepted and materializes the chat thread atomically.
// COALESCE keeps the original acceptance timestamps on retries, and the
// thread insert is conflict-free so at most one thread exists per connection.
func (r *ConnectionRepo) Accept(ctx context.Context, id string) (*domain.Connection, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE connections
		SET status = $2,
			accepted_at = COALESCE(accepted_at, now()),
			last_message_at = COALESCE(last_message_at, now())
		WHERE id = $1
		RETURNING id, user_a, user_b, sender, receiver, status,
			created_at, accepted_at, last_message, last_message_at`
	var conn domain.Connection
	err = tx.QueryRow(ctx, query, id, domain.StatusAccepted).Scan(
		&conn.ID, &conn.UserA, &conn.UserB, &conn.Sender, &conn.Receiver, &conn.Status,
		&conn.CreatedAt, &conn.AcceptedAt, &conn.LastMessage, &conn.LastMessageAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_threads (id, user_a, user_b, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO NOTHING`,
		conn.ID, conn.UserA, conn.UserB,
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat thread: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing accept tx: %w", err)
	}
	return &conn, nil
}

func (r *ConnectionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM connections WHERE id = $1`, id)
	return err
}

func (r *ConnectionRepo) ListPending(ctx context.Context, receiverID string) ([]domain.Connection, error) {
	query := `
		SELECT c.id, c.user_a, c.user_b, c.sender, c.receiver, c.status,
			c.created_at, c.accepted_at, c.last_message, c.last_message_at,
			u.email, u.display_name
		FROM connections c
		JOIN users u ON c.sender = u.id
		WHERE c.receiver = $1 AND c.status = $2
		ORDER BY c.created_at DESC`

	rows, err := r.pool.Query(ctx, query, receiverID, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.Connection
	for rows.Next() {
		var conn domain.Connection
		if err := rows.Scan(
			&conn.ID, &conn.UserA, &conn.UserB, &conn.Sender, &conn.Receiver, &conn.Status,
			&conn.CreatedAt, &conn.AcceptedAt, &conn.LastMessage, &conn.LastMessageAt,
			&conn.SenderEmail, &conn.SenderDisplayName,
		); err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepo) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	query := `
		SELECT c.id,
			CASE WHEN c.user_a = $1 THEN c.user_b ELSE c.user_a END AS peer_id,
			CASE WHEN c.user_a = $1 THEN ub.email ELSE ua.email END AS peer_email,
			CASE WHEN c.user_a = $1 THEN ub.display_name ELSE ua.display_name END AS peer_display_name,
			c.last_message, c.last_message_at,
			(SELECT count(*) FROM messages m
				WHERE m.thread_id = c.id
				AND m.sender <> $1
				AND m.created_at > COALESCE(
					(SELECT tr.last_read_at FROM thread_reads tr
						WHERE tr.thread_id = c.id AND tr.user_id = $1),
					'epoch'::timestamptz)) AS unread
		FROM connections c
		JOIN users ua ON c.user_a = ua.id
		JOIN users ub ON c.user_b = ub.id
		WHERE (c.user_a = $1 OR c.user_b = $1) AND c.status = $2
		ORDER BY c.last_message_at DESC NULLS LAST`

	rows, err := r.pool.Query(ctx, query, userID, domain.StatusAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convos []domain.Conversation
	for rows.Next() {
		var cv domain.Conversation
		if err := rows.Scan(
			&cv.ID, &cv.PeerID, &cv.PeerEmail, &cv.PeerDisplayName,
			&cv.LastMessage, &cv.LastMessageAt, &cv.Unread,
		); err != nil {
			return nil, err
		}
		convos = append(convos, cv)
	}
	return convos, rows.Err()
}
