// Command reconcile expires pending company verifications that have passed their
// deadline. It runs once and exits; schedule it from cron.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobportal-api/internal/app"
	"github.com/jobportal-api/internal/application/recruiter"
	"github.com/jobportal-api/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(app.NewLogger(os.Stderr, cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		slog.Error("open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	svc := recruiter.NewService(recruiter.ServiceDeps{
		Accounts:      stores.Users,
		Verifications: stores.Verifications,
		TTL:           cfg.VerificationTTL,
	})
	n, err := svc.ReconcileExpired(ctx)
	if err != nil {
		slog.Error("reconcile failed", "expired", n, "err", err)
		stores.Close()
		os.Exit(1)
	}
	slog.Info("reconcile finished", "expired", n)
}
