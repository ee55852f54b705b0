package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/metrics"
	"github.com/allisson/payments/internal/payment/domain"
)

// paymentUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type paymentUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewPaymentUseCaseWithMetrics wraps a payment UseCase with metrics recording.
func NewPaymentUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &paymentUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// ProcessPayment records metrics for payment admission operations.
func (p *paymentUseCaseWithMetrics) ProcessPayment(
	ctx context.Context,
	input ProcessPaymentInput,
) (*PaymentResult, error) {
	start := time.Now()
	result, err := p.next.ProcessPayment(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "payment", "process_payment", status)
	p.metrics.RecordDuration(ctx, "payment", "process_payment", time.Since(start), status)

	return result, err
}

// GetTransaction records metrics for transaction retrieval operations.
func (p *paymentUseCaseWithMetrics) GetTransaction(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Transaction, error) {
	start := time.Now()
	transaction, err := p.next.GetTransaction(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "payment", "get_transaction", status)
	p.metrics.RecordDuration(ctx, "payment", "get_transaction", time.Since(start), status)

	return transaction, err
}
