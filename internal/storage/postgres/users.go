package postgres

import (
	"context"
	"fmt"

	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/storage"
)

const userColumns = `id, email, display_name, password_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if isNoRows(err) {
		return nil, notFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User)
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (s *Store) GetBillingCustomer(ctx context.Context, userID string) (*models.BillingCustomer, error) {
	customer := &models.BillingCustomer{}
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, stripe_customer_id, created_at FROM billing_customers WHERE user_id = $1`, userID,
	).Scan(&customer.UserID, &customer.StripeCustomerID, &customer.CreatedAt)
	if isNoRows(err) {
		return nil, notFound("billing customer for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get billing customer: %w", err)
	}
	return customer, nil
}

func (s *Store) LinkBillingCustomer(ctx context.Context, customer *models.BillingCustomer) error {
	if customer.CreatedAt == 0 {
		customer.CreatedAt = nowUnix()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO billing_customers (user_id, stripe_customer_id, created_at) VALUES ($1, $2, $3)`,
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
