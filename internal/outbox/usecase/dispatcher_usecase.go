// Package usecase implements the outbox dispatcher: the poll loop that moves
// claimed events through the gateway and the retry/dead-letter state machine.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/gateway"
	"github.com/allisson/payments/internal/outbox/domain"

	deadletterDomain "github.com/allisson/payments/internal/deadletter/domain"
	paymentDomain "github.com/allisson/payments/internal/payment/domain"
)

// Responses cached on the idempotency record when the dispatcher settles a
// transaction. Duplicate requests replay these verbatim.
const (
	SuccessResponseBody = "Payment processed successfully"
	FailureResponseBody = "Payment processing failed after maximum retries"
)

// Config holds dispatcher configuration
type Config struct {
	Interval       time.Duration
	MaxAttempts    int
	GatewayTimeout time.Duration
}

// OutboxEventRepository defines the outbox operations the dispatcher needs
type OutboxEventRepository interface {
	ClaimNext(ctx context.Context) (*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines the ledger operations the dispatcher needs
type TransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Transaction, error)
	Update(ctx context.Context, transaction *paymentDomain.Transaction) error
}

// IdempotencyRepository defines the idempotency operations the dispatcher needs
type IdempotencyRepository interface {
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*paymentDomain.IdempotencyRecord, error)
	Update(ctx context.Context, record *paymentDomain.IdempotencyRecord) error
}

// DeadLetterRepository defines the quarantine operations the dispatcher needs
type DeadLetterRepository interface {
	Create(ctx context.Context, deadLetter *deadletterDomain.DeadLetter) error
}

// UseCase defines the interface for the outbox dispatcher
type UseCase interface {
	Start(ctx context.Context) error
	ProcessNext(ctx context.Context) (bool, error)
}

// DispatcherUseCase claims pending outbox events one at a time and settles
// the transaction, idempotency record and dead letter state atomically
type DispatcherUseCase struct {
	config          Config
	txManager       database.TxManager
	outboxRepo      OutboxEventRepository
	transactionRepo TransactionRepository
	idempotencyRepo IdempotencyRepository
	deadLetterRepo  DeadLetterRepository
	gateway         gateway.Gateway
	logger          *slog.Logger
}

// NewDispatcherUseCase creates a new DispatcherUseCase
func NewDispatcherUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	transactionRepo TransactionRepository,
	idempotencyRepo IdempotencyRepository,
	deadLetterRepo DeadLetterRepository,
	gw gateway.Gateway,
	logger *slog.Logger,
) *DispatcherUseCase {
	return &DispatcherUseCase{
		config:          config,
		txManager:       txManager,
		outboxRepo:      outboxRepo,
		transactionRepo: transactionRepo,
		idempotencyRepo: idempotencyRepo,
		deadLetterRepo:  deadLetterRepo,
		gateway:         gw,
		logger:          logger,
	}
}

// Start runs the dispatch loop until the context is canceled
func (uc *DispatcherUseCase) Start(ctx context.Context) error {
	return uc.run(ctx, uc.ProcessNext)
}

// run drives the ticker loop with the supplied step, so a decorated
// dispatcher can route ticker cycles through its own ProcessNext
func (uc *DispatcherUseCase) run(ctx context.Context, step func(ctx context.Context) (bool, error)) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox dispatcher",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("max_attempts", uc.config.MaxAttempts),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox dispatcher")
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := step(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process outbox event", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessNext claims the oldest pending event and runs it end to end inside
// one transaction. Returns false when no pending event exists.
//
// Success marks the event processed and settles the transaction and the
// idempotency record. Failure below the attempt ceiling leaves the event
// pending for the next cycle; at the ceiling the event moves to the dead
// letter table and the transaction is failed. The row lock taken by ClaimNext
// holds for the whole cycle, so concurrent dispatchers never touch the same
// event, and a crash before commit leaves it pending.
func (uc *DispatcherUseCase) ProcessNext(ctx context.Context) (bool, error) {
	processed := false
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		event, err := uc.outboxRepo.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrOutboxEventNotFound) {
				return nil
			}
			return err
		}
		processed = true

		gatewayCtx, cancel := context.WithTimeout(ctx, uc.config.GatewayTimeout)
		gatewayErr := uc.gateway.Process(gatewayCtx, event)
		cancel()

		if gatewayErr != nil {
			return uc.handleFailure(ctx, event, gatewayErr)
		}
		return uc.handleSuccess(ctx, event)
	})
	return processed, err
}

// handleSuccess marks the event processed and settles the transaction and
// idempotency record as successful. Attempts counts failed tries only, so a
// first-try success settles with zero.
func (uc *DispatcherUseCase) handleSuccess(ctx context.Context, event *domain.OutboxEvent) error {
	now := time.Now()
	event.Processed = true
	event.ProcessedAt = &now

	if err := uc.outboxRepo.Update(ctx, event); err != nil {
		return err
	}

	transaction, err := uc.transactionRepo.GetByID(ctx, event.AggregateID)
	if err != nil {
		return err
	}
	transaction.Status = paymentDomain.TransactionStatusSuccess
	transaction.RetryCount = event.Attempts
	transaction.GatewayReference = uuid.Must(uuid.NewV7()).String()
	if err := uc.transactionRepo.Update(ctx, transaction); err != nil {
		return err
	}

	if err := uc.settleIdempotencyRecord(ctx, transaction.ID,
		paymentDomain.IdempotencyStatusCompleted, http.StatusOK, SuccessResponseBody); err != nil {
		return err
	}

	if uc.logger != nil {
		uc.logger.Info("outbox event dispatched",
			slog.String("event_id", event.ID.String()),
			slog.String("transaction_id", transaction.ID.String()),
			slog.Int("attempts", event.Attempts),
		)
	}
	return nil
}

// handleFailure counts the attempt and either leaves the event for the next
// cycle or quarantines it at the attempt ceiling
func (uc *DispatcherUseCase) handleFailure(ctx context.Context, event *domain.OutboxEvent, gatewayErr error) error {
	event.Attempts++

	if event.Attempts < uc.config.MaxAttempts {
		if err := uc.outboxRepo.Update(ctx, event); err != nil {
			return err
		}

		transaction, err := uc.transactionRepo.GetByID(ctx, event.AggregateID)
		if err != nil {
			return err
		}
		transaction.RetryCount = event.Attempts
		if err := uc.transactionRepo.Update(ctx, transaction); err != nil {
			return err
		}

		if uc.logger != nil {
			uc.logger.Warn("outbox event dispatch failed, will retry",
				slog.String("event_id", event.ID.String()),
				slog.Int("attempts", event.Attempts),
				slog.Int("max_attempts", uc.config.MaxAttempts),
				slog.Any("error", gatewayErr),
			)
		}
		return nil
	}

	// Attempt ceiling reached: quarantine the event and fail the transaction
	now := time.Now()
	deadLetter := &deadletterDomain.DeadLetter{
		ID:            uuid.Must(uuid.NewV7()),
		SourceEventID: event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       event.Payload,
		ErrorMessage:  gatewayErr.Error(),
		Attempts:      event.Attempts,
		LastAttemptAt: now,
	}
	if err := uc.deadLetterRepo.Create(ctx, deadLetter); err != nil {
		return err
	}
	if err := uc.outboxRepo.Delete(ctx, event.ID); err != nil {
		return err
	}

	transaction, err := uc.transactionRepo.GetByID(ctx, event.AggregateID)
	if err != nil {
		return err
	}
	transaction.Status = paymentDomain.TransactionStatusFailed
	transaction.RetryCount = event.Attempts
	if err := uc.transactionRepo.Update(ctx, transaction); err != nil {
		return err
	}

	if err := uc.settleIdempotencyRecord(ctx, transaction.ID,
		paymentDomain.IdempotencyStatusFailed, http.StatusInternalServerError, FailureResponseBody); err != nil {
		return err
	}

	if uc.logger != nil {
		uc.logger.Error("outbox event moved to dead letter",
			slog.String("event_id", event.ID.String()),
			slog.String("dead_letter_id", deadLetter.ID.String()),
			slog.Int("attempts", event.Attempts),
			slog.Any("error", gatewayErr),
		)
	}
	return nil
}

// settleIdempotencyRecord caches the terminal response on the idempotency
// record so duplicate requests replay it
func (uc *DispatcherUseCase) settleIdempotencyRecord(
	ctx context.Context,
	transactionID uuid.UUID,
	status paymentDomain.IdempotencyStatus,
	responseCode int,
	responseBody string,
) error {
	record, err := uc.idempotencyRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	record.Status = status
	record.ResponseCode = &responseCode
	record.ResponseBody = &responseBody
	return uc.idempotencyRepo.Update(ctx, record)
}
