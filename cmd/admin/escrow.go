package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/gigboard/internal/app"
	"github.com/mmynk/gigboard/internal/billing"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/service"
)

func escrowCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escrow",
		Short: "Inspect and repair escrow holds",
	}
	cmd.AddCommand(escrowHoldCmd(open))
	cmd.AddCommand(escrowShowCmd(open))
	cmd.AddCommand(escrowReconcileCmd(open))
	return cmd
}

func escrowHoldCmd(open opener) *cobra.Command {
	var (
		paymentID string
		payment   models.Payment
		amount    string
	)

	cmd := &cobra.Command{
		Use:   "hold",
		Short: "Record a paid payment and place it in escrow",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env, args []string) error {
			minor, err := parseAmount(amount)
			if err != nil {
				return err
			}
			if _, err := e.store.GetUserByID(ctx, payment.UserID); err != nil {
				return fmt.Errorf("user %s: %w", payment.UserID, err)
			}

			payment.ID = paymentID
			payment.Amount = minor
			payment.Currency = strings.ToLower(payment.Currency)
			if err := e.store.HoldPayment(ctx, &payment); err != nil {
				return fmt.Errorf("hold payment: %w", err)
			}
			fmt.Fprintf(e.out, "holding %s %s for %s as payment %s\n",
				billing.MinorToDecimal(payment.Amount).StringFixed(2), strings.ToUpper(payment.Currency),
				payment.CreativeStripeAccountID, payment.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "payment ID (generated if empty)")
	cmd.Flags().StringVar(&payment.UserID, "user", "", "paying client's user ID (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in major units, e.g. 125.50 (required)")
	cmd.Flags().StringVar(&payment.Currency, "currency", "usd", "ISO 4217 currency code")
	cmd.Flags().StringVar(&payment.CreativeStripeAccountID, "account", "", "payee's connected Stripe account, e.g. acct_123 (required)")
	cmd.Flags().StringVar(&payment.GigID, "gig", "", "gig the payment is for")
	for _, f := range []string{"user", "amount", "account"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// parseAmount converts a major-unit amount with at most two decimals to
// minor units.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", s)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than two decimal places", s)
	}
	if minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("amount %s is too large", s)
	}
	return minor.IntPart(), nil
}

func escrowShowCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <payment-id>",
		Short: "Show a payment and its escrow",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(open, func(ctx context.Context, e *env, args []string) error {
			payment, err := e.store.GetPayment(ctx, args[0])
			if err != nil {
				return err
			}
			escrow, err := e.store.GetEscrow(ctx, args[0])
			if err != nil {
				return err
			}
			printEscrow(e.out, payment, escrow)
			return nil
		}),
	}
}

func escrowReconcileCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <payment-id>",
		Short: "Finish a release left in the releasing state",
		Long: `Reconcile repeats the Stripe transfer for an escrow stuck in the releasing
state, using the idempotency key of the attempt in flight, and records the
result. If Stripe rejects that transfer the escrow is put back on hold so the
owner can release it again. Released escrows are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: withEnv(open, func(ctx context.Context, e *env, args []string) error {
			m := metrics.New()
			usage := service.NewUsageService(e.store, m, e.logger)
			escrows := service.NewEscrowService(e.store, app.NewProcessor(e.cfg.Stripe, e.logger), usage, m, e.logger)

			escrow, err := escrows.Reconcile(ctx, args[0])
			if err != nil {
				return err
			}
			payment, err := e.store.GetPayment(ctx, args[0])
			if err != nil {
				return err
			}
			printEscrow(e.out, payment, escrow)
			return nil
		}),
	}
}

func printEscrow(w io.Writer, p *models.Payment, e *models.Escrow) {
	fmt.Fprintf(w, "payment   %s\n", p.ID)
	fmt.Fprintf(w, "client    %s\n", p.UserID)
	fmt.Fprintf(w, "payee     %s\n", p.CreativeStripeAccountID)
	fmt.Fprintf(w, "amount    %s %s\n", billing.MinorToDecimal(p.Amount).StringFixed(2), strings.ToUpper(p.Currency))
	fmt.Fprintf(w, "status    %s\n", p.Status)
	fmt.Fprintf(w, "escrow    %s\n", e.Status)
	fmt.Fprintf(w, "attempts  %d\n", e.Attempt)
	if e.TransferID != "" {
		fmt.Fprintf(w, "transfer  %s\n", e.TransferID)
	}
	if e.ReleasedAt != 0 {
		fmt.Fprintf(w, "released  %s\n", time.Unix(e.ReleasedAt, 0).UTC().Format(time.RFC3339))
	}
}
