package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/service"
)

func userCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, name, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env, args []string) error {
			user, err := auth.NewPasswordAuthenticator(e.store).Register(ctx, email, name, password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(e.out, "created user %s <%s>\n", user.ID, user.Email)
			return nil
		}),
	}
	create.Flags().StringVar(&email, "email", "", "email address (required)")
	create.Flags().StringVar(&name, "name", "", "display name (required)")
	create.Flags().StringVar(&password, "password", "", "password, at least 8 characters (required)")
	for _, f := range []string{"email", "name", "password"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}

func customerCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage billing customers",
	}

	var userID, customerID string
	link := &cobra.Command{
		Use:   "link",
		Short: "Link a user to an existing Stripe customer",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env, args []string) error {
			if _, err := e.store.GetUserByID(ctx, userID); err != nil {
				return fmt.Errorf("user %s: %w", userID, err)
			}
			err := e.store.LinkBillingCustomer(ctx, &models.BillingCustomer{UserID: userID, StripeCustomerID: customerID})
			if err != nil {
				return fmt.Errorf("link customer: %w", err)
			}
			fmt.Fprintf(e.out, "linked user %s to %s\n", userID, customerID)
			return nil
		}),
	}
	link.Flags().StringVar(&userID, "user", "", "user ID (required)")
	link.Flags().StringVar(&customerID, "customer", "", "Stripe customer ID, e.g. cus_123 (required)")
	_ = link.MarkFlagRequired("user")
	_ = link.MarkFlagRequired("customer")

	cmd.AddCommand(link)
	return cmd
}

func usageCmd(open opener) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show a user's usage for the current month",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env, args []string) error {
			svc := service.NewUsageService(e.store, metrics.New(), e.logger)
			summary, err := svc.Summary(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "usage since %s\n", summary.PeriodStart.Format("2006-01-02"))
			for _, metric := range models.UsageMetrics {
				fmt.Fprintf(e.out, "  %-16s %d\n", metric, summary.Totals[metric])
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
