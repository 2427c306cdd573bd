package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-core/internal/api"
	"github.com/akylbek/payment-system/payment-core/internal/config"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "payment-core",
		Short:        "Payment initiation, settlement and ISO 20022 messaging",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "statement",
			Short: "Print a camt.053 statement for the configured ledger",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printStatement(cmd.Context(), cmd.OutOrStdout())
			},
		},
	)
	return root
}

func setup() (*config.Config, *app, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry(telemetry.Options{
		ServiceName:    "payment-core",
		JaegerEndpoint: cfg.JaegerEndpoint,
		TracingEnabled: cfg.TracingEnabled,
	}); err != nil {
		return nil, nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		telemetry.Logger.Error("Failed to wire payment core", zap.Error(err))
		return nil, nil, err
	}
	return cfg, a, nil
}

func serve(ctx context.Context) error {
	cfg, a, err := setup()
	if err != nil {
		return err
	}
	defer telemetry.Shutdown(context.Background())
	defer a.Close()

	telemetry.Logger.Info("Starting Payment Core")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			telemetry.Logger.Error("Failed to start settlement workers", zap.Error(err))
			return err
		}
	}

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(a.svc, a.registry),
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		telemetry.Logger.Info("Payment Core starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		telemetry.Logger.Error("Failed to start server", zap.Error(err))
		return err
	}

	telemetry.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.worker != nil {
		a.worker.Wait()
	}

	telemetry.Logger.Info("Server exited")
	return nil
}

func printStatement(ctx context.Context, out io.Writer) error {
	_, a, err := setup()
	if err != nil {
		return err
	}
	defer telemetry.Shutdown(context.Background())
	defer a.Close()

	doc, err := a.svc.RenderStatement(ctx)
	if err != nil {
		return err
	}
	_, err = out.Write(doc)
	return err
}
