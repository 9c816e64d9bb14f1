package models

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentReleased PaymentStatus = "released"
	PaymentFailed   PaymentStatus = "failed"
)

// Payment is money a client paid for a gig, held until released to the creative.
// Rows are created by the checkout flow; the escrow release flow only updates
// Status and TransferID.
type Payment struct {
	// ID is the unique identifier for the payment.
	ID string

	// UserID is the paying client. Only this user may release the payment.
	UserID string

	// GigID is the gig the payment was made for. Optional.
	GigID string

	// Amount is in minor currency units (cents).
	Amount int64

	// Currency is a lowercase ISO 4217 code, e.g. "usd".
	Currency string

	// CreativeStripeAccountID is the payee's connected Stripe account.
	CreativeStripeAccountID string

	Status PaymentStatus

	// TransferID is set once the funds have been transferred to the payee.
	TransferID string

	CreatedAt int64
	UpdatedAt int64
}

// EscrowStatus is the lifecycle state of an Escrow hold.
type EscrowStatus string

const (
	EscrowHeld EscrowStatus = "held"
	// EscrowReleasing marks an escrow claimed by an in-flight release.
	EscrowReleasing EscrowStatus = "releasing"
	EscrowReleased  EscrowStatus = "released"
)

// Escrow is the hold placed on a Payment, keyed by the payment ID.
//
// Status only moves forward: held -> releasing -> released. The one exception is
// releasing -> held, taken when the transfer to the payee fails.
type Escrow struct {
	PaymentID  string
	Status     EscrowStatus
	TransferID string

	// ReleasedAt is the Unix timestamp of the release, zero while held.
	ReleasedAt int64

	// Attempt counts the claims made for release. While releasing it
	// identifies the transfer in flight.
	Attempt int

	CreatedAt int64
}
