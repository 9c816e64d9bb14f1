package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/storage"
)

// HoldPayment inserts a pending payment and its held escrow atomically.
func (s *SQLiteStore) HoldPayment(ctx context.Context, payment *models.Payment) error {
	// Generate ID if not set
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if payment.CreatedAt == 0 {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = payment.CreatedAt
	payment.Status = models.PaymentPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, user_id, gig_id, amount, currency, creative_stripe_account_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.UserID, nullString(payment.GigID), payment.Amount, payment.Currency,
		payment.CreativeStripeAccountID, payment.Status, payment.CreatedAt, payment.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("payment %s: %w", payment.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO escrows (payment_id, status, created_at) VALUES (?, ?, ?)`,
		payment.ID, models.EscrowHeld, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert escrow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment := &models.Payment{}
	var gigID, transferID sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, gig_id, amount, currency, creative_stripe_account_id, status, transfer_id, created_at, updated_at
		 FROM payments WHERE id = ?`,
		paymentID,
	).Scan(&payment.ID, &payment.UserID, &gigID, &payment.Amount, &payment.Currency,
		&payment.CreativeStripeAccountID, &payment.Status, &transferID, &payment.CreatedAt, &payment.UpdatedAt)

	if isNoRows(err) {
		return nil, notFound("payment", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	payment.GigID = gigID.String
	payment.TransferID = transferID.String

	return payment, nil
}

// GetEscrow retrieves the escrow hold for a payment.
func (s *SQLiteStore) GetEscrow(ctx context.Context, paymentID string) (*models.Escrow, error) {
	escrow := &models.Escrow{}
	var transferID sql.NullString
	var releasedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT payment_id, status, transfer_id, released_at, attempt, created_at FROM escrows WHERE payment_id = ?`,
		paymentID,
	).Scan(&escrow.PaymentID, &escrow.Status, &transferID, &releasedAt, &escrow.Attempt, &escrow.CreatedAt)

	if isNoRows(err) {
		return nil, notFound("escrow", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}

	escrow.TransferID = transferID.String
	escrow.ReleasedAt = releasedAt.Int64

	return escrow, nil
}

// ClaimEscrow moves the escrow from held to releasing and returns the new
// attempt number.
func (s *SQLiteStore) ClaimEscrow(ctx context.Context, paymentID string) (int, error) {
	var attempt int
	err := s.db.QueryRowContext(ctx,
		`UPDATE escrows SET status = ?, attempt = attempt + 1
		 WHERE payment_id = ? AND status = ?
		 RETURNING attempt`,
		models.EscrowReleasing, paymentID, models.EscrowHeld,
	).Scan(&attempt)
	if err == nil {
		return attempt, nil
	}
	if !isNoRows(err) {
		return 0, fmt.Errorf("failed to claim escrow: %w", err)
	}

	if _, err := s.GetEscrow(ctx, paymentID); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("escrow %s is not %s: %w", paymentID, models.EscrowHeld, storage.ErrConflict)
}

// ReleaseClaim moves the escrow from releasing back to held.
func (s *SQLiteStore) ReleaseClaim(ctx context.Context, paymentID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE escrows SET status = ? WHERE payment_id = ? AND status = ?`,
		models.EscrowHeld, paymentID, models.EscrowReleasing,
	)
	if err != nil {
		return fmt.Errorf("failed to update escrow: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := s.GetEscrow(ctx, paymentID); err != nil {
		return err
	}
	return fmt.Errorf("escrow %s is not %s: %w", paymentID, models.EscrowReleasing, storage.ErrConflict)
}

// CompleteRelease marks the escrow and the payment released in one transaction.
func (s *SQLiteStore) CompleteRelease(ctx context.Context, paymentID, transferID string, releasedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE escrows SET status = ?, transfer_id = ?, released_at = ?
		 WHERE payment_id = ? AND status = ?`,
		models.EscrowReleased, transferID, releasedAt, paymentID, models.EscrowReleasing,
	)
	if err != nil {
		return fmt.Errorf("failed to release escrow: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	} else if n != 1 {
		return fmt.Errorf("escrow %s is not releasing: %w", paymentID, storage.ErrConflict)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, transfer_id = ?, updated_at = ? WHERE id = ?`,
		models.PaymentReleased, transferID, releasedAt, paymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to release payment: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	} else if n != 1 {
		return notFound("payment", paymentID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
