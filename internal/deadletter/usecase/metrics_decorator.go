package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/deadletter/domain"
	"github.com/allisson/payments/internal/metrics"
)

// deadLetterUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type deadLetterUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewDeadLetterUseCaseWithMetrics wraps a dead letter UseCase with metrics recording.
func NewDeadLetterUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &deadLetterUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// List records metrics for dead letter list operations.
func (d *deadLetterUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.DeadLetter, error) {
	start := time.Now()
	deadLetters, err := d.next.List(ctx, offset, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "deadletter", "list", status)
	d.metrics.RecordDuration(ctx, "deadletter", "list", time.Since(start), status)

	return deadLetters, err
}

// Get records metrics for dead letter retrieval operations.
func (d *deadLetterUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.DeadLetter, error) {
	start := time.Now()
	deadLetter, err := d.next.Get(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "deadletter", "get", status)
	d.metrics.RecordDuration(ctx, "deadletter", "get", time.Since(start), status)

	return deadLetter, err
}

// Requeue records metrics for dead letter requeue operations.
func (d *deadLetterUseCaseWithMetrics) Requeue(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	start := time.Now()
	newEventID, err := d.next.Requeue(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "deadletter", "requeue", status)
	d.metrics.RecordDuration(ctx, "deadletter", "requeue", time.Since(start), status)

	return newEventID, err
}

// Delete records metrics for dead letter deletion operations.
func (d *deadLetterUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := d.next.Delete(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "deadletter", "delete", status)
	d.metrics.RecordDuration(ctx, "deadletter", "delete", time.Since(start), status)

	return err
}
