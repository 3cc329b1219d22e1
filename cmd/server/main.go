package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/parkjaeuk0210/nebulous-game/internal/app"
	"github.com/parkjaeuk0210/nebulous-game/internal/config"
	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
)

func main() {
	logger := telemetry.WrapLogger(log.Default())

	settings, err := config.Load(logger)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Logger: logger, Settings: settings}); err != nil {
		log.Fatalf("%v", err)
	}
}
