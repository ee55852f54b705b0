package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/app"
	"github.com/allisson/payments/internal/config"
	deadletterUsecase "github.com/allisson/payments/internal/deadletter/usecase"
)

// RunRequeueDeadLetter moves a quarantined dead letter back onto the outbox so
// the dispatcher picks it up again. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunRequeueDeadLetter(ctx context.Context, id string, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get dead letter use case from container
	deadLetterUseCase, err := container.DeadLetterUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize dead letter use case: %w", err)
	}

	return requeueDeadLetter(ctx, deadLetterUseCase, logger, os.Stdout, id, format)
}

// requeueDeadLetter performs the requeue with injected dependencies.
func requeueDeadLetter(
	ctx context.Context,
	deadLetterUseCase deadletterUsecase.UseCase,
	logger *slog.Logger,
	w io.Writer,
	id string,
	format string,
) error {
	deadLetterID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid dead letter ID: %s (must be a valid UUID)", id)
	}

	logger.Info("requeueing dead letter", slog.String("dead_letter_id", deadLetterID.String()))

	outboxEventID, err := deadLetterUseCase.Requeue(ctx, deadLetterID)
	if err != nil {
		return fmt.Errorf("failed to requeue dead letter: %w", err)
	}

	// Output result based on format
	if format == "json" {
		outputRequeueJSON(w, deadLetterID, outboxEventID)
	} else {
		outputRequeueText(w, deadLetterID, outboxEventID)
	}

	logger.Info("dead letter requeued",
		slog.String("dead_letter_id", deadLetterID.String()),
		slog.String("outbox_event_id", outboxEventID.String()),
	)

	return nil
}

// outputRequeueText outputs the result in human-readable text format.
func outputRequeueText(w io.Writer, deadLetterID, outboxEventID uuid.UUID) {
	fmt.Fprintf(w, "Dead letter %s requeued as outbox event %s\n", deadLetterID, outboxEventID)
}

// outputRequeueJSON outputs the result in JSON format for machine consumption.
func outputRequeueJSON(w io.Writer, deadLetterID, outboxEventID uuid.UUID) {
	result := map[string]interface{}{
		"dead_letter_id":  deadLetterID.String(),
		"outbox_event_id": outboxEventID.String(),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
