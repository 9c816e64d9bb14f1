package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/storage"
)

func nowUnix() int64 { return time.Now().Unix() }

func (s *Store) HoldPayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = nowUnix()
	}
	payment.UpdatedAt = payment.CreatedAt
	payment.Status = models.PaymentPending

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO payments (id, user_id, gig_id, amount, currency, creative_stripe_account_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		payment.ID, payment.UserID, nullString(payment.GigID), payment.Amount, payment.Currency,
		payment.CreativeStripeAccountID, string(payment.Status), payment.CreatedAt, payment.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("payment %s: %w", payment.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO escrows (payment_id, status, created_at) VALUES ($1, $2, $3)`,
		payment.ID, string(models.EscrowHeld), payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert escrow: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment := &models.Payment{}
	var gigID, transferID *string
	var status string

	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, gig_id, amount, currency, creative_stripe_account_id, status, transfer_id, created_at, updated_at
		 FROM payments WHERE id = $1`,
		paymentID,
	).Scan(&payment.ID, &payment.UserID, &gigID, &payment.Amount, &payment.Currency,
		&payment.CreativeStripeAccountID, &status, &transferID, &payment.CreatedAt, &payment.UpdatedAt)
	if isNoRows(err) {
		return nil, notFound("payment", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	payment.Status = models.PaymentStatus(status)
	if gigID != nil {
		payment.GigID = *gigID
	}
	if transferID != nil {
		payment.TransferID = *transferID
	}
	return payment, nil
}

func (s *Store) GetEscrow(ctx context.Context, paymentID string) (*models.Escrow, error) {
	escrow := &models.Escrow{}
	var status string
	var transferID *string
	var releasedAt *int64

	err := s.pool.QueryRow(ctx,
		`SELECT payment_id, status, transfer_id, released_at, attempt, created_at FROM escrows WHERE payment_id = $1`,
		paymentID,
	).Scan(&escrow.PaymentID, &status, &transferID, &releasedAt, &escrow.Attempt, &escrow.CreatedAt)
	if isNoRows(err) {
		return nil, notFound("escrow", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}

	escrow.Status = models.EscrowStatus(status)
	if transferID != nil {
		escrow.TransferID = *transferID
	}
	if releasedAt != nil {
		escrow.ReleasedAt = *releasedAt
	}
	return escrow, nil
}

func (s *Store) ClaimEscrow(ctx context.Context, paymentID string) (int, error) {
	var attempt int
	err := s.pool.QueryRow(ctx,
		`UPDATE escrows SET status = $1, attempt = attempt + 1
		 WHERE payment_id = $2 AND status = $3
		 RETURNING attempt`,
		string(models.EscrowReleasing), paymentID, string(models.EscrowHeld),
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

func (s *Store) ReleaseClaim(ctx context.Context, paymentID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE escrows SET status = $1 WHERE payment_id = $2 AND status = $3`,
		string(models.EscrowHeld), paymentID, string(models.EscrowReleasing),
	)
	if err != nil {
		return fmt.Errorf("failed to update escrow: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := s.GetEscrow(ctx, paymentID); err != nil {
		return err
	}
	return fmt.Errorf("escrow %s is not %s: %w", paymentID, models.EscrowReleasing, storage.ErrConflict)
}

func (s *Store) CompleteRelease(ctx context.Context, paymentID, transferID string, releasedAt int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE escrows SET status = $1, transfer_id = $2, released_at = $3
		 WHERE payment_id = $4 AND status = $5`,
		string(models.EscrowReleased), transferID, releasedAt, paymentID, string(models.EscrowReleasing),
	)
	if err != nil {
		return fmt.Errorf("failed to release escrow: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("escrow %s is not releasing: %w", paymentID, storage.ErrConflict)
	}

	tag, err = tx.Exec(ctx,
		`UPDATE payments SET status = $1, transfer_id = $2, updated_at = $3 WHERE id = $4`,
		string(models.PaymentReleased), transferID, releasedAt, paymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to release payment: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return notFound("payment", paymentID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
