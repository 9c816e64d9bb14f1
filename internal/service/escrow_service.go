package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/payments"
	"github.com/mmynk/gigboard/internal/storage"
)

// EscrowService releases held payments to the creatives they are owed to.
type EscrowService struct {
	store     storage.EscrowStore
	processor payments.Processor
	usage     *UsageService
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewEscrowService creates a new EscrowService.
func NewEscrowService(store storage.EscrowStore, processor payments.Processor, usage *UsageService, m *metrics.Metrics, logger *slog.Logger) *EscrowService {
	return &EscrowService{
		store:     store,
		processor: processor,
		usage:     usage,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// TransferIdempotencyKey identifies the transfer of one release attempt.
// Replaying an attempt can never move the funds twice, and a new attempt
// after a failed transfer is not answered with the cached failure.
func TransferIdempotencyKey(paymentID string, attempt int) string {
	return fmt.Sprintf("escrow-release-%s-%d", paymentID, attempt)
}

func transferRequest(payment *models.Payment, attempt int) payments.TransferRequest {
	return payments.TransferRequest{
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Destination:    payment.CreativeStripeAccountID,
		Group:          payment.ID,
		IdempotencyKey: TransferIdempotencyKey(payment.ID, attempt),
	}
}

func (s *EscrowService) observe(outcome string) {
	s.metrics.EscrowReleases.WithLabelValues(outcome).Inc()
}

// Release transfers a held payment to its creative on behalf of the paying
// user.
//
// The escrow must exist (NotFound) and belong to userID (PermissionDenied),
// checked in that order. It must still be held (FailedPrecondition). The
// escrow is claimed before the transfer so concurrent requests cannot both
// transfer. A transfer rejected by the processor puts the escrow back on hold
// for a later attempt; any other transfer failure leaves it releasing until
// Reconcile settles it.
func (s *EscrowService) Release(ctx context.Context, userID, paymentID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("paymentId is required"))
	}

	logger := s.logger.With("user_id", userID, "payment_id", paymentID)

	escrow, err := s.store.GetEscrow(ctx, paymentID)
	if errors.Is(err, storage.ErrNotFound) {
		s.observe("not_found")
		return connect.NewError(connect.CodeNotFound, errEscrowNotFound)
	}
	if err != nil {
		logger.Error("GetEscrow failed", "error", err)
		return storeError(err)
	}

	payment, err := s.store.GetPayment(ctx, paymentID)
	if errors.Is(err, storage.ErrNotFound) {
		s.observe("not_found")
		return connect.NewError(connect.CodeNotFound, errEscrowNotFound)
	}
	if err != nil {
		logger.Error("GetPayment failed", "error", err)
		return storeError(err)
	}

	if payment.UserID != userID {
		s.observe("forbidden")
		logger.Warn("Escrow release by non-owner", "owner_id", payment.UserID)
		return connect.NewError(connect.CodePermissionDenied, errNotEscrowOwner)
	}

	switch escrow.Status {
	case models.EscrowReleased:
		s.observe("conflict")
		return connect.NewError(connect.CodeFailedPrecondition, errAlreadyReleased)
	case models.EscrowReleasing:
		s.observe("conflict")
		return connect.NewError(connect.CodeFailedPrecondition, errReleaseInProgress)
	}

	attempt, err := s.store.ClaimEscrow(ctx, paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.observe("conflict")
			return connect.NewError(connect.CodeFailedPrecondition, errReleaseInProgress)
		}
		logger.Error("ClaimEscrow failed", "error", err)
		return storeError(err)
	}

	logger = logger.With("attempt", attempt)

	transfer, err := s.processor.CreateTransfer(ctx, transferRequest(payment, attempt))
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("create_transfer").Inc()
		if !errors.Is(err, payments.ErrRejected) {
			// The transfer may have gone through. Retrying under a new attempt
			// could pay twice, so the escrow stays releasing for Reconcile.
			s.observe("transfer_unknown")
			logger.Error("Escrow transfer outcome unknown; reconcile this escrow", "error", err)
			return connect.NewError(connect.CodeInternal, errTransferFailed)
		}

		s.observe("transfer_failed")
		logger.Error("Escrow transfer rejected", "error", err)

		// The claim must be undone even if the caller has gone away.
		if rerr := s.store.ReleaseClaim(context.WithoutCancel(ctx), paymentID); rerr != nil {
			logger.Error("Failed to return escrow to held", "error", rerr)
		}
		return connect.NewError(connect.CodeInternal, errTransferFailed)
	}

	if err := s.store.CompleteRelease(context.WithoutCancel(ctx), paymentID, transfer.ID, s.now().Unix()); err != nil {
		s.observe("record_failed")
		logger.Error("Transfer sent but release not recorded; reconcile this escrow",
			"transfer_id", transfer.ID,
			"error", err,
		)
		return connect.NewError(connect.CodeInternal, errInternal)
	}

	s.observe("released")
	s.usage.track(ctx, userID, models.UsageEscrowReleases)

	logger.Info("Escrow released", "transfer_id", transfer.ID, "amount", payment.Amount, "currency", payment.Currency)
	return nil
}

// Reconcile finishes a release whose transfer may have been sent without the
// result being recorded, leaving the escrow in the releasing state. The
// transfer of the current attempt is repeated with the same idempotency key,
// so the processor returns the original transfer instead of paying twice.
//
// If the processor rejects the transfer, no funds moved under that attempt and
// the escrow goes back to held (FailedPrecondition), ready for a new release
// attempt. Any other transfer failure leaves it releasing.
//
// Released escrows are returned unchanged; held escrows are a FailedPrecondition.
func (s *EscrowService) Reconcile(ctx context.Context, paymentID string) (*models.Escrow, error) {
	escrow, err := s.store.GetEscrow(ctx, paymentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, errEscrowNotFound)
	}
	if err != nil {
		return nil, storeError(err)
	}

	switch escrow.Status {
	case models.EscrowReleased:
		return escrow, nil
	case models.EscrowHeld:
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("escrow is held, not being released"))
	}

	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, storeError(err)
	}

	transfer, err := s.processor.CreateTransfer(ctx, transferRequest(payment, escrow.Attempt))
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("create_transfer").Inc()
		logger := s.logger.With("payment_id", paymentID, "attempt", escrow.Attempt)
		if !errors.Is(err, payments.ErrRejected) {
			logger.Error("Reconcile transfer failed", "error", err)
			return nil, connect.NewError(connect.CodeInternal, errTransferFailed)
		}

		logger.Warn("Reconcile transfer rejected; returning escrow to held", "error", err)
		if rerr := s.store.ReleaseClaim(context.WithoutCancel(ctx), paymentID); rerr != nil {
			logger.Error("Failed to return escrow to held", "error", rerr)
			return nil, storeError(rerr)
		}
		s.observe("reconcile_rejected")
		return nil, connect.NewError(connect.CodeFailedPrecondition, errTransferRejected)
	}

	if err := s.store.CompleteRelease(ctx, paymentID, transfer.ID, s.now().Unix()); err != nil {
		s.logger.Error("Reconcile write failed", "payment_id", paymentID, "transfer_id", transfer.ID, "error", err)
		return nil, storeError(err)
	}

	s.observe("reconciled")
	s.usage.track(ctx, payment.UserID, models.UsageEscrowReleases)
	s.logger.Info("Escrow reconciled", "payment_id", paymentID, "transfer_id", transfer.ID)

	escrow, err = s.store.GetEscrow(ctx, paymentID)
	if err != nil {
		return nil, storeError(err)
	}
	return escrow, nil
}
