package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/gigboard/internal/models"
)

const messageColumns = `id, sender_id, recipient_id, gig_id, body, created_at`

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var gigID *string
	err := row.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &gigID, &msg.Body, &msg.CreatedAt)
	if gigID != nil {
		msg.GigID = *gigID
	}
	return msg, err
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = nowUnix()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SenderID, msg.RecipientID, nullString(msg.GigID), msg.Body, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *Store) ListConversation(ctx context.Context, userA, userB string, limit int) ([]*models.Message, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	// LIMIT NULL means no limit in Postgres.
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM (
		     SELECT * FROM messages
		     WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		     ORDER BY created_at DESC, seq DESC
		     LIMIT $3
		 ) recent
		 ORDER BY created_at, seq`,
		userA, userB, lim,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	return collectMessages(rows)
}

func (s *Store) ListInbox(ctx context.Context, userID string) ([]*models.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM (
		     SELECT DISTINCT ON (CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END) *
		     FROM messages
		     WHERE sender_id = $1 OR recipient_id = $1
		     ORDER BY CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END, created_at DESC, seq DESC
		 ) latest
		 ORDER BY created_at DESC, seq DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]*models.Message, error) {
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}
