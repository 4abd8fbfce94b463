package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Leganyst/fitness-booking/internal/app"
	"github.com/Leganyst/fitness-booking/internal/config"
)

func main() {
	// 1. Конфиг: .env, CONFIG_PATH, переменные окружения.
	cfg := config.MustLoad()

	// 2. Логгер.
	log := setupLogger(cfg.Env)
	log.Info("starting fitness booking service", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	// 3. БД, миграции, сервисы, планировщик, серверы.
	application, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- application.Run()
	}()

	// 4. Грейсфул-шатдаун по сигналу.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		log.Info("shutting down...")
	case err := <-errChan:
		log.Error("server crashed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		log.Error("failed to stop application", slog.Any("error", err))
	}

	log.Info("stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
