package usecase

import (
	"context"
	"time"

	"github.com/allisson/payments/internal/metrics"
)

// dispatcherUseCaseWithMetrics decorates the dispatcher with metrics instrumentation.
type dispatcherUseCaseWithMetrics struct {
	next    *DispatcherUseCase
	metrics metrics.BusinessMetrics
}

// NewDispatcherUseCaseWithMetrics wraps a dispatcher with metrics recording.
func NewDispatcherUseCaseWithMetrics(useCase *DispatcherUseCase, m metrics.BusinessMetrics) UseCase {
	return &dispatcherUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Start runs the inner ticker loop with the metered ProcessNext as its step,
// so ticker-driven cycles are recorded exactly once.
func (d *dispatcherUseCaseWithMetrics) Start(ctx context.Context) error {
	return d.next.run(ctx, d.ProcessNext)
}

// ProcessNext records metrics for dispatch cycles that claimed an event.
func (d *dispatcherUseCaseWithMetrics) ProcessNext(ctx context.Context) (bool, error) {
	start := time.Now()
	processed, err := d.next.ProcessNext(ctx)

	// Idle cycles are not interesting to count
	if !processed && err == nil {
		return processed, err
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "outbox", "dispatch", status)
	d.metrics.RecordDuration(ctx, "outbox", "dispatch", time.Since(start), status)

	return processed, err
}
