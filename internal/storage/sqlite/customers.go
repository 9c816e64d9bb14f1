package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/storage"
)

// GetBillingCustomer returns the Stripe customer linked to the user.
func (s *SQLiteStore) GetBillingCustomer(ctx context.Context, userID string) (*models.BillingCustomer, error) {
	customer := &models.BillingCustomer{}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, stripe_customer_id, created_at FROM billing_customers WHERE user_id = ?`,
		userID,
	).Scan(&customer.UserID, &customer.StripeCustomerID, &customer.CreatedAt)
	if isNoRows(err) {
		return nil, notFound("billing customer for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get billing customer: %w", err)
	}

	return customer, nil
}

// LinkBillingCustomer stores the user -> Stripe customer mapping.
func (s *SQLiteStore) LinkBillingCustomer(ctx context.Context, customer *models.BillingCustomer) error {
	if customer.CreatedAt == 0 {
		customer.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO billing_customers (user_id, stripe_customer_id, created_at) VALUES (?, ?, ?)`,
		customer.UserID, customer.StripeCustomerID, customer.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("billing customer for user %s: %w", customer.UserID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to link billing customer: %w", err)
	}

	return nil
}
