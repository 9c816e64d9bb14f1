package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/gigboard/internal/api"
	"github.com/mmynk/gigboard/internal/app"
	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/config"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/middleware"
	"github.com/mmynk/gigboard/internal/rpc"
	"github.com/mmynk/gigboard/internal/service"
	"github.com/mmynk/gigboard/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.DB, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	processor := app.NewProcessor(cfg.Stripe, logger)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenTTL)

	usageSvc := service.NewUsageService(store, m, logger)
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger)
	billingSvc := service.NewBillingService(store, processor, service.BillingConfig{
		CheckoutSuccessURL: cfg.Stripe.CheckoutSuccessURL,
		CheckoutCancelURL:  cfg.Stripe.CheckoutCancelURL,
		PortalReturnURL:    cfg.Stripe.PortalReturnURL,
	}, m, logger)
	escrowSvc := service.NewEscrowService(store, processor, usageSvc, m, logger)

	mux := http.NewServeMux()

	// Register Connect services
	gigPath, gigHandler := rpc.NewGigServiceHandler(
		service.NewGigService(store, usageSvc, logger),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor(logger, m)),
	)
	mux.Handle(gigPath, gigHandler)

	msgPath, msgHandler := rpc.NewMessageServiceHandler(
		service.NewMessageService(store, usageSvc, logger),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(logger, m)),
	)
	mux.Handle(msgPath, msgHandler)

	// Everything else is the REST API
	mux.Handle("/", api.NewServer(api.Deps{
		Auth:          authSvc,
		Billing:       billingSvc,
		Escrow:        escrowSvc,
		Usage:         usageSvc,
		JWT:           jwtManager,
		Store:         store,
		Metrics:       m,
		Logger:        logger,
		SecureCookies: cfg.SecureCookies,
	}))

	// Wrap with h2c for HTTP/2 without TLS (required for gRPC clients of the Connect services)
	handler := h2c.NewHandler(middleware.RequestID(corsMiddleware(mux)), &http2.Server{})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	allowHeaders := strings.Join([]string{
		"Authorization",
		"Content-Type",
		"Connect-Protocol-Version",
		"Connect-Timeout-Ms",
		middleware.RequestIDHeader,
	}, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+middleware.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
