package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jobportal-api/internal/app"
	"github.com/jobportal-api/internal/config"
	jwtinfra "github.com/jobportal-api/internal/infrastructure/jwt"
	transporthttp "github.com/jobportal-api/internal/transport/http"
	appmiddleware "github.com/jobportal-api/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(app.NewLogger(os.Stdout, cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer stores.Close()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	dispatcher, closeDispatcher, err := app.NewDispatcher(cfg)
	if err != nil {
		return fmt.Errorf("%s dispatcher: %w", cfg.DispatchDriver, err)
	}
	defer closeDispatcher()

	publisher, err := app.NewPublisher(ctx, cfg)
	if err != nil {
		slog.Warn("promotion events disabled", "err", err)
	}

	classifier, err := app.NewClassifier(ctx, cfg)
	if err != nil {
		return err
	}

	limiter := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	defer limiter.Stop()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserRepo:         stores.Users,
		VerificationRepo: stores.Verifications,
		Classifier:       classifier,
		Dispatcher:       dispatcher,
		Publisher:        publisher,
		JWTProvider:      jwtProvider,
		RateLimiter:      limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreDriver, "dispatch", cfg.DispatchDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
