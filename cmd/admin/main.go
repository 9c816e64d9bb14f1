// Command admin performs operator tasks against the gigboard database:
// migrations, seeding users and billing customers, and inspecting or
// reconciling escrows.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/gigboard/internal/app"
	"github.com/mmynk/gigboard/internal/config"
	"github.com/mmynk/gigboard/internal/storage"
	"github.com/mmynk/gigboard/pkg/logging"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand works with.
type env struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "gigboard-admin",
		Short:         "Operator tasks for the gigboard database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $"+config.FileEnv+")")

	// open loads config and opens the store; the caller closes it.
	open := func(cmd *cobra.Command) (*env, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.DB.Validate(); err != nil {
			return nil, err
		}
		logger := logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

		store, err := app.OpenStore(cmd.Context(), cfg.DB, logger)
		if err != nil {
			return nil, err
		}
		return &env{cfg: cfg, store: store, logger: logger, out: cmd.OutOrStdout()}, nil
	}

	rootCmd.AddCommand(migrateCmd(open))
	rootCmd.AddCommand(userCmd(open))
	rootCmd.AddCommand(customerCmd(open))
	rootCmd.AddCommand(escrowCmd(open))
	rootCmd.AddCommand(usageCmd(open))

	return rootCmd
}

type opener func(cmd *cobra.Command) (*env, error)

// withEnv adapts a function needing an env into a cobra RunE.
func withEnv(open opener, fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := open(cmd)
		if err != nil {
			return err
		}
		defer e.store.Close()
		return fn(cmd.Context(), e, args)
	}
}

func migrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: withEnv(open, func(ctx context.Context, e *env, args []string) error {
			// Opening the store applies pending migrations.
			fmt.Fprintf(e.out, "schema up to date (%s)\n", e.cfg.DB.Driver)
			return nil
		}),
	}
}
