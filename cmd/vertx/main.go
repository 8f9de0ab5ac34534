package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrSnakeDoc/vertx/internal/app"
	"github.com/MrSnakeDoc/vertx/internal/config"
	"github.com/MrSnakeDoc/vertx/internal/logger"
)

func main() {
	cfg := config.Load()
	loggerClient := logger.NewWithOptions(logger.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.PrettyLog,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxMB,
		MaxBackups: 5,
		MaxAgeDays: 30,
	})
	defer func() { _ = loggerClient.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, loggerClient)
	if err != nil {
		log.Fatalf("❌ vertx failed to start: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ vertx stopped with error: %v", err)
	}
}
