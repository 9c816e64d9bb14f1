// Package paymentstest provides an in-memory payments.Processor for tests.
package paymentstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmynk/gigboard/internal/payments"
)

// Fake implements payments.Processor. Func fields override the default
// behaviour; every call is recorded. Like Stripe, CreateTransfer replays the
// first result for a repeated idempotency key, errors included.
type Fake struct {
	ListPaidInvoicesFunc      func(ctx context.Context, customerID string, limit int) ([]payments.Invoice, error)
	ListPaymentAttemptsFunc   func(ctx context.Context, customerID string, limit int) ([]payments.PaymentAttempt, error)
	CreateTransferFunc        func(ctx context.Context, req payments.TransferRequest) (*payments.Transfer, error)
	CreateCustomerFunc        func(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSessionFunc func(ctx context.Context, req payments.CheckoutRequest) (string, error)
	CreatePortalSessionFunc   func(ctx context.Context, customerID, returnURL string) (string, error)

	mu        sync.Mutex
	calls     []string
	transfers []payments.TransferRequest
	results   map[string]transferResult
	created   int
}

type transferResult struct {
	transfer *payments.Transfer
	err      error
}

var _ payments.Processor = (*Fake)(nil)

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the names of the methods called so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Transfers returns every transfer request received.
func (f *Fake) Transfers() []payments.TransferRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payments.TransferRequest(nil), f.transfers...)
}

func (f *Fake) ListPaidInvoices(ctx context.Context, customerID string, limit int) ([]payments.Invoice, error) {
	f.record("ListPaidInvoices")
	if f.ListPaidInvoicesFunc != nil {
		return f.ListPaidInvoicesFunc(ctx, customerID, limit)
	}
	return nil, nil
}

func (f *Fake) ListPaymentAttempts(ctx context.Context, customerID string, limit int) ([]payments.PaymentAttempt, error) {
	f.record("ListPaymentAttempts")
	if f.ListPaymentAttemptsFunc != nil {
		return f.ListPaymentAttemptsFunc(ctx, customerID, limit)
	}
	return nil, nil
}

// IdempotencyKeys returns the key of every transfer request, in order.
func (f *Fake) IdempotencyKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, len(f.transfers))
	for i, req := range f.transfers {
		keys[i] = req.IdempotencyKey
	}
	return keys
}

func (f *Fake) CreateTransfer(ctx context.Context, req payments.TransferRequest) (*payments.Transfer, error) {
	f.record("CreateTransfer")
	f.mu.Lock()
	f.transfers = append(f.transfers, req)
	if res, ok := f.results[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		f.mu.Unlock()
		return res.transfer, res.err
	}
	f.mu.Unlock()

	var res transferResult
	if f.CreateTransferFunc != nil {
		res.transfer, res.err = f.CreateTransferFunc(ctx, req)
	} else {
		f.mu.Lock()
		f.created++
		n := f.created
		f.mu.Unlock()
		res.transfer = &payments.Transfer{
			ID:          fmt.Sprintf("tr_%d", n),
			Amount:      req.Amount,
			Currency:    req.Currency,
			Destination: req.Destination,
			Group:       req.Group,
		}
	}

	if req.IdempotencyKey != "" {
		f.mu.Lock()
		if f.results == nil {
			f.results = make(map[string]transferResult)
		}
		f.results[req.IdempotencyKey] = res
		f.mu.Unlock()
	}
	return res.transfer, res.err
}

func (f *Fake) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	f.record("CreateCustomer")
	if f.CreateCustomerFunc != nil {
		return f.CreateCustomerFunc(ctx, email, userID)
	}
	return "cus_" + userID, nil
}

func (f *Fake) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (string, error) {
	f.record("CreateCheckoutSession")
	if f.CreateCheckoutSessionFunc != nil {
		return f.CreateCheckoutSessionFunc(ctx, req)
	}
	return "https://checkout.example.com/" + req.CustomerID, nil
}

func (f *Fake) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	f.record("CreatePortalSession")
	if f.CreatePortalSessionFunc != nil {
		return f.CreatePortalSessionFunc(ctx, customerID, returnURL)
	}
	return "https://portal.example.com/" + customerID, nil
}
