package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingEventStatus is the outcome of a billing event.
type BillingEventStatus string

const (
	BillingSucceeded BillingEventStatus = "succeeded"
	BillingFailed    BillingEventStatus = "failed"
)

// BillingEvent is one row of a user's billing history.
// It is derived from Stripe invoices and failed charges on every request.
type BillingEvent struct {
	// ID is the Stripe object ID (invoice or charge).
	ID string

	// Date is when the invoice or charge was created.
	Date time.Time

	// Amount is in decimal currency units (minor units / 100).
	Amount decimal.Decimal

	Status BillingEventStatus

	// InvoiceURL links to the invoice document. Nil for failed payments.
	InvoiceURL *string
}
