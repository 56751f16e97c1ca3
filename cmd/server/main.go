// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/iyunix/go-voicechat/internal/config"
)

func main() {
	cfg := config.Load()

	app, err := InitializeApplication(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer app.Logger.Sync()
	defer app.AILimiter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		app.Logger.Info("server starting", "addr", app.Server.Addr, "env", cfg.Environment, "db_driver", cfg.DBDriver)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			app.Logger.Error("server startup failed", "error", err)
			return
		}
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down server gracefully", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("server shutdown failed", "error", err)
	}
	if sqlDB, err := app.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	app.Logger.Info("server stopped")
}
