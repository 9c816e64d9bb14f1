// Package payments defines the payment processor boundary used by the billing
// and escrow flows, and its Stripe implementation.
package payments

import (
	"context"
	"errors"
)

var (
	// ErrUpstream wraps every failure returned by the payment processor.
	ErrUpstream = errors.New("payment processor error")

	// ErrRejected additionally marks failures where the processor answered
	// and refused the request, e.g. an insufficient balance. Nothing was
	// created, unlike a timeout where the outcome is unknown.
	ErrRejected = errors.New("rejected by payment processor")
)

// AttemptFailed is the processor status of a failed payment attempt.
const AttemptFailed = "failed"

// Invoice is a paid invoice as reported by the processor.
type Invoice struct {
	ID string
	// Created is Unix seconds.
	Created int64
	// AmountPaid is in minor units.
	AmountPaid int64
	Currency   string
	// PDFURL is the downloadable invoice document. May be empty.
	PDFURL string
	// HostedURL is the processor-hosted invoice page. May be empty.
	HostedURL string
}

// PaymentAttempt is one attempt to charge a customer.
type PaymentAttempt struct {
	ID string
	// Created is Unix seconds.
	Created int64
	// Amount is in minor units.
	Amount   int64
	Currency string
	// Status is the processor's status string, e.g. "succeeded" or "failed".
	Status string
}

// TransferRequest moves funds from the platform balance to a connected account.
type TransferRequest struct {
	// Amount is in minor units.
	Amount      int64
	Currency    string
	Destination string
	// Group correlates transfers belonging to the same payment.
	Group string
	// IdempotencyKey makes retries of the same request return the same
	// result. Use a new key to try again after a rejection.
	IdempotencyKey string
}

// Transfer is a completed transfer.
type Transfer struct {
	ID          string
	Amount      int64
	Currency    string
	Destination string
	Group       string
}

// CheckoutRequest describes a subscription checkout session.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	// ClientReference is echoed back on webhooks; we use the user ID.
	ClientReference string
	SuccessURL      string
	CancelURL       string
}

// Processor is the external payment processor.
type Processor interface {
	// ListPaidInvoices returns up to limit most recent paid invoices.
	ListPaidInvoices(ctx context.Context, customerID string, limit int) ([]Invoice, error)

	// ListPaymentAttempts returns up to limit most recent payment attempts.
	// With Stripe these are the customer's Charges, not PaymentIntents: every
	// declined attempt leaves a charge with status "failed".
	ListPaymentAttempts(ctx context.Context, customerID string, limit int) ([]PaymentAttempt, error)

	// CreateTransfer moves funds to a connected account. A request repeated
	// with the same IdempotencyKey returns the first result, errors included.
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)

	// CreateCustomer creates a billing customer and returns its ID.
	CreateCustomer(ctx context.Context, email, userID string) (string, error)

	// CreateCheckoutSession returns the URL to redirect the customer to.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)

	// CreatePortalSession returns the billing portal URL for the customer.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
