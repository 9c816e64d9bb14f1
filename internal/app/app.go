// Package app wires configuration to concrete stores and processors. It is
// shared by the server and admin binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/gigboard/internal/config"
	"github.com/mmynk/gigboard/internal/payments"
	"github.com/mmynk/gigboard/internal/storage"
	"github.com/mmynk/gigboard/internal/storage/postgres"
	"github.com/mmynk/gigboard/internal/storage/sqlite"
)

// connectTimeout bounds the initial Postgres connection and migration.
const connectTimeout = 30 * time.Second

// OpenStore opens the configured record store and applies migrations.
func OpenStore(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		logger.Info("Storage initialized", "driver", cfg.Driver, "database", cfg.Path)
		return store, nil

	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		store, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("Storage initialized", "driver", cfg.Driver)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// NewProcessor returns the Stripe processor. Without a secret key every
// processor call fails, which is logged once here.
func NewProcessor(cfg config.StripeConfig, logger *slog.Logger) payments.Processor {
	if cfg.SecretKey == "" {
		logger.Warn("GIGBOARD_STRIPE_SECRET_KEY is not set; billing and escrow calls will fail")
	}
	return payments.NewStripeProcessor(cfg.SecretKey)
}
