package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/gigboard/internal/models"
)

const messageColumns = `id, sender_id, recipient_id, gig_id, body, created_at`

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var gigID sql.NullString
	err := row.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &gigID, &msg.Body, &msg.CreatedAt)
	msg.GigID = gigID.String
	return msg, err
}

// CreateMessage persists a new message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SenderID, msg.RecipientID, nullString(msg.GigID), msg.Body, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// ListConversation returns the messages exchanged by two users, oldest first.
func (s *SQLiteStore) ListConversation(ctx context.Context, userA, userB string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	// Newest N first, then reversed below.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		userA, userB, userB, userA, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ListInbox returns the latest message per counterpart, newest first.
func (s *SQLiteStore) ListInbox(ctx context.Context, userID string) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM (
		     SELECT m.*, m.rowid AS seq, ROW_NUMBER() OVER (
		         PARTITION BY CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END
		         ORDER BY created_at DESC, rowid DESC
		     ) AS rn
		     FROM messages m
		     WHERE sender_id = ? OR recipient_id = ?
		 ) WHERE rn = 1
		 ORDER BY created_at DESC, seq DESC`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]*models.Message, error) {
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
