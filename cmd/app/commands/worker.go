package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/payments/internal/app"
	"github.com/allisson/payments/internal/config"
)

// RunWorker starts the outbox dispatcher as a standalone process.
// Blocks until receiving SIGINT/SIGTERM. The dispatcher drains its current
// cycle before the container is shut down.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))

	defer closeContainer(container, logger)

	dispatcher, err := container.DispatcherUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox dispatcher: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("outbox dispatcher error: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}
