// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/gigboard/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update lost to the current row state.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns the users that exist, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// BillingCustomerStore links users to their Stripe customers.
type BillingCustomerStore interface {
	// GetBillingCustomer returns ErrNotFound if the user has no customer on file.
	GetBillingCustomer(ctx context.Context, userID string) (*models.BillingCustomer, error)

	// LinkBillingCustomer stores the mapping. Returns ErrAlreadyExists if the
	// user is already linked.
	LinkBillingCustomer(ctx context.Context, customer *models.BillingCustomer) error
}

// EscrowStore persists payments and the escrow holds on them.
type EscrowStore interface {
	// HoldPayment inserts a pending payment and a held escrow for it in one
	// transaction. payment.ID is generated if empty.
	HoldPayment(ctx context.Context, payment *models.Payment) error

	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	GetEscrow(ctx context.Context, paymentID string) (*models.Escrow, error)

	// ClaimEscrow moves the escrow from held to releasing, increments its
	// attempt counter and returns the new value.
	// Returns ErrConflict if the escrow is not currently held.
	ClaimEscrow(ctx context.Context, paymentID string) (int, error)

	// ReleaseClaim moves a releasing escrow back to held. The attempt
	// counter is kept, so the next claim starts a fresh attempt.
	ReleaseClaim(ctx context.Context, paymentID string) error

	// CompleteRelease marks both the escrow and the payment released with the
	// given transfer ID in a single transaction. The escrow must be releasing.
	CompleteRelease(ctx context.Context, paymentID, transferID string, releasedAt int64) error
}

// GigStore persists gig postings.
type GigStore interface {
	CreateGig(ctx context.Context, gig *models.Gig) error
	GetGig(ctx context.Context, gigID string) (*models.Gig, error)

	// ListGigs returns gigs newest first.
	ListGigs(ctx context.Context, filter models.GigFilter) ([]*models.Gig, error)
	UpdateGig(ctx context.Context, gig *models.Gig) error
}

// MessageStore persists direct messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error

	// ListConversation returns messages between two users, oldest first.
	// When limit > 0 only the most recent limit messages are returned.
	ListConversation(ctx context.Context, userA, userB string, limit int) ([]*models.Message, error)

	// ListInbox returns the latest message per counterpart, newest first.
	ListInbox(ctx context.Context, userID string) ([]*models.Message, error)
}

// UsageStore persists metered usage.
type UsageStore interface {
	RecordUsage(ctx context.Context, record *models.UsageRecord) error

	// SumUsage totals a user's usage per metric since the given Unix time.
	SumUsage(ctx context.Context, userID string, since int64) (map[models.UsageMetric]int64, error)
}

// Store is the full record store used by the server.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	UserStore
	BillingCustomerStore
	EscrowStore
	GigStore
	MessageStore
	UsageStore

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
