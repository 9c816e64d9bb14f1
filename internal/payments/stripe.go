package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var _ Processor = (*StripeProcessor)(nil)

// StripeProcessor implements Processor with the Stripe API.
type StripeProcessor struct {
	api *client.API
}

// NewStripeProcessor creates a processor authenticated with the given secret key.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	return &StripeProcessor{api: client.New(secretKey, nil)}
}

// upstream wraps a Stripe error with ErrUpstream, keeping Stripe's code when
// present. 4xx answers other than 409 and 429 are also ErrRejected.
func upstream(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if rejected(stripeErr.HTTPStatusCode) {
			return fmt.Errorf("%w: %w: %s: %s (%s)", ErrUpstream, ErrRejected, op, stripeErr.Msg, stripeErr.Code)
		}
		return fmt.Errorf("%w: %s: %s (%s)", ErrUpstream, op, stripeErr.Msg, stripeErr.Code)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}

// rejected reports whether Stripe refused the request outright. 409 is an
// idempotency key still in use and 429 a rate limit; neither settles the
// outcome.
func rejected(status int) bool {
	return status >= 400 && status < 500 && status != 409 && status != 429
}

// ListPaidInvoices lists the customer's most recent paid invoices.
func (p *StripeProcessor) ListPaidInvoices(ctx context.Context, customerID string, limit int) ([]Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.InvoiceStatusPaid)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))

	// The iterator auto-paginates; stop after the first limit results.
	var invoices []Invoice
	iter := p.api.Invoices.List(params)
	for len(invoices) < limit && iter.Next() {
		inv := iter.Invoice()
		invoices = append(invoices, Invoice{
			ID:         inv.ID,
			Created:    inv.Created,
			AmountPaid: inv.AmountPaid,
			Currency:   string(inv.Currency),
			PDFURL:     inv.InvoicePDF,
			HostedURL:  inv.HostedInvoiceURL,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, upstream("list invoices", err)
	}
	return invoices, nil
}

// ListPaymentAttempts lists the customer's most recent charges. Stripe
// records a failed charge for every declined attempt, so charges cover the
// failed payment intents as well.
func (p *StripeProcessor) ListPaymentAttempts(ctx context.Context, customerID string, limit int) ([]PaymentAttempt, error) {
	params := &stripe.ChargeListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))

	var attempts []PaymentAttempt
	iter := p.api.Charges.List(params)
	for len(attempts) < limit && iter.Next() {
		ch := iter.Charge()
		attempts = append(attempts, PaymentAttempt{
			ID:       ch.ID,
			Created:  ch.Created,
			Amount:   ch.Amount,
			Currency: string(ch.Currency),
			Status:   string(ch.Status),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, upstream("list charges", err)
	}
	return attempts, nil
}

// CreateTransfer sends funds to a connected account.
func (p *StripeProcessor) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Destination:   stripe.String(req.Destination),
		TransferGroup: stripe.String(req.Group),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	tr, err := p.api.Transfers.New(params)
	if err != nil {
		return nil, upstream("create transfer", err)
	}

	out := &Transfer{
		ID:       tr.ID,
		Amount:   tr.Amount,
		Currency: string(tr.Currency),
		Group:    tr.TransferGroup,
	}
	if tr.Destination != nil {
		out.Destination = tr.Destination.ID
	}
	return out, nil
}

// CreateCustomer creates a Stripe customer tagged with the user ID.
func (p *StripeProcessor) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	cus, err := p.api.Customers.New(params)
	if err != nil {
		return "", upstream("create customer", err)
	}
	return cus.ID, nil
}

// CreateCheckoutSession starts a subscription checkout.
func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(req.CustomerID),
		ClientReferenceID: stripe.String(req.ClientReference),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", upstream("create checkout session", err)
	}
	return sess.URL, nil
}

// CreatePortalSession opens the Stripe billing portal for a customer.
func (p *StripeProcessor) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", upstream("create portal session", err)
	}
	return sess.URL, nil
}
