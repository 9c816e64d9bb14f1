package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/gigboard/internal/billing"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/payments"
	"github.com/mmynk/gigboard/internal/storage"
)

// BillingStore is the part of the record store billing needs.
type BillingStore interface {
	storage.UserStore
	storage.BillingCustomerStore
}

// BillingConfig holds the redirect URLs handed to the processor.
type BillingConfig struct {
	CheckoutSuccessURL string
	CheckoutCancelURL  string
	PortalReturnURL    string
}

// BillingService serves billing history and subscription management.
type BillingService struct {
	store     BillingStore
	processor payments.Processor
	cfg       BillingConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewBillingService creates a new BillingService.
func NewBillingService(store BillingStore, processor payments.Processor, cfg BillingConfig, m *metrics.Metrics, logger *slog.Logger) *BillingService {
	return &BillingService{
		store:     store,
		processor: processor,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

// History returns the user's recent paid invoices and failed payment
// attempts, newest first.
func (s *BillingService) History(ctx context.Context, userID string) ([]models.BillingEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	customer, err := s.store.GetBillingCustomer(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, errNoBillingCustomer)
	}
	if err != nil {
		s.logger.Error("GetBillingCustomer failed", "user_id", userID, "error", err)
		return nil, storeError(err)
	}

	var (
		invoices []payments.Invoice
		attempts []payments.PaymentAttempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.processor.ListPaidInvoices(gctx, customer.StripeCustomerID, billing.HistoryLimit)
		if err != nil {
			s.metrics.UpstreamErrors.WithLabelValues("list_invoices").Inc()
			return fmt.Errorf("list invoices: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		attempts, err = s.processor.ListPaymentAttempts(gctx, customer.StripeCustomerID, billing.HistoryLimit)
		if err != nil {
			s.metrics.UpstreamErrors.WithLabelValues("list_payment_attempts").Inc()
			return fmt.Errorf("list payment attempts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Billing history fetch failed",
			"user_id", userID,
			"customer_id", customer.StripeCustomerID,
			"error", err,
		)
		return nil, connect.NewError(connect.CodeInternal, errHistoryFailed)
	}

	events := billing.MergeHistory(invoices, attempts)
	s.metrics.HistorySize.Observe(float64(len(events)))

	s.logger.Info("Billing history loaded", "user_id", userID, "events", len(events))
	return events, nil
}

// Checkout starts a subscription checkout for the price and returns the
// processor URL to redirect to. The user's billing customer is created on
// first use.
func (s *BillingService) Checkout(ctx context.Context, userID, priceID string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	if priceID == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.New("priceId is required"))
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.processor.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		CustomerID:      customerID,
		PriceID:         priceID,
		ClientReference: userID,
		SuccessURL:      s.cfg.CheckoutSuccessURL,
		CancelURL:       s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("create_checkout_session").Inc()
		s.logger.Error("CreateCheckoutSession failed", "user_id", userID, "price_id", priceID, "error", err)
		return "", connect.NewError(connect.CodeInternal, errors.New("failed to start checkout"))
	}

	s.logger.Info("Checkout session created", "user_id", userID, "price_id", priceID)
	return url, nil
}

// Portal returns a billing portal URL for a user that already has a customer.
func (s *BillingService) Portal(ctx context.Context, userID string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}

	customer, err := s.store.GetBillingCustomer(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", connect.NewError(connect.CodeNotFound, errNoBillingCustomer)
	}
	if err != nil {
		s.logger.Error("GetBillingCustomer failed", "user_id", userID, "error", err)
		return "", storeError(err)
	}

	url, err := s.processor.CreatePortalSession(ctx, customer.StripeCustomerID, s.cfg.PortalReturnURL)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("create_portal_session").Inc()
		s.logger.Error("CreatePortalSession failed", "user_id", userID, "error", err)
		return "", connect.NewError(connect.CodeInternal, errors.New("failed to open billing portal"))
	}

	return url, nil
}

// ensureCustomer returns the user's billing customer ID, creating and
// linking one if needed.
func (s *BillingService) ensureCustomer(ctx context.Context, userID string) (string, error) {
	customer, err := s.store.GetBillingCustomer(ctx, userID)
	if err == nil {
		return customer.StripeCustomerID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("GetBillingCustomer failed", "user_id", userID, "error", err)
		return "", storeError(err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error("GetUserByID failed", "user_id", userID, "error", err)
		return "", storeError(err)
	}

	customerID, err := s.processor.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("create_customer").Inc()
		s.logger.Error("CreateCustomer failed", "user_id", userID, "error", err)
		return "", connect.NewError(connect.CodeInternal, errors.New("failed to create billing customer"))
	}

	err = s.store.LinkBillingCustomer(ctx, &models.BillingCustomer{UserID: userID, StripeCustomerID: customerID})
	if errors.Is(err, storage.ErrAlreadyExists) {
		// A concurrent checkout linked first; use its customer.
		existing, err := s.store.GetBillingCustomer(ctx, userID)
		if err != nil {
			return "", storeError(err)
		}
		s.logger.Warn("Discarding duplicate billing customer", "user_id", userID, "customer_id", customerID)
		return existing.StripeCustomerID, nil
	}
	if err != nil {
		s.logger.Error("LinkBillingCustomer failed", "user_id", userID, "error", err)
		return "", storeError(err)
	}

	s.logger.Info("Billing customer created", "user_id", userID, "customer_id", customerID)
	return customerID, nil
}
