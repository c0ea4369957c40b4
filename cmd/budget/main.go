package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/auth"
	"budget/internal/backend"
	"budget/internal/config"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration",
			applog.FieldOperation, applog.OpStartup,
			applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := backend.NewFactory(logger)
	be, err := factory.CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend",
			applog.FieldOperation, applog.OpStartup,
			applog.FieldBackend, cfg.DataBackend,
			applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	}()

	gate := auth.NewGate(be.Users, be.Sessions, cfg.SessionTTL)
	srv := apphttp.NewServer(cfg, gate, be, logger)

	// Remote backends pump change notifications from the broker into the
	// live feed hub for as long as the process runs.
	if be.Run != nil {
		go func() {
			if err := be.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change feed stopped", applog.FieldError, err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			applog.FieldOperation, applog.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting budget server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
