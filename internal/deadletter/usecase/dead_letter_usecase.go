// Package usecase implements operator access to quarantined events: listing,
// inspection, requeue and deletion.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/deadletter/domain"

	outboxDomain "github.com/allisson/payments/internal/outbox/domain"
)

// UseCase defines the interface for dead letter operations
type UseCase interface {
	List(ctx context.Context, offset, limit int) ([]*domain.DeadLetter, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.DeadLetter, error)
	Requeue(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DeadLetterRepository interface defines dead letter repository operations
type DeadLetterRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DeadLetter, error)
	List(ctx context.Context, offset, limit int) ([]*domain.DeadLetter, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OutboxEventRepository interface defines the outbox operations requeue needs
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// DeadLetterUseCase handles dead letter business logic
type DeadLetterUseCase struct {
	txManager      database.TxManager
	deadLetterRepo DeadLetterRepository
	outboxRepo     OutboxEventRepository
}

// NewDeadLetterUseCase creates a new DeadLetterUseCase
func NewDeadLetterUseCase(
	txManager database.TxManager,
	deadLetterRepo DeadLetterRepository,
	outboxRepo OutboxEventRepository,
) *DeadLetterUseCase {
	return &DeadLetterUseCase{
		txManager:      txManager,
		deadLetterRepo: deadLetterRepo,
		outboxRepo:     outboxRepo,
	}
}

// List retrieves dead letters with pagination
func (uc *DeadLetterUseCase) List(ctx context.Context, offset, limit int) ([]*domain.DeadLetter, error) {
	return uc.deadLetterRepo.List(ctx, offset, limit)
}

// Get retrieves a dead letter by ID
func (uc *DeadLetterUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.DeadLetter, error) {
	return uc.deadLetterRepo.GetByID(ctx, id)
}

// Requeue moves a dead letter back to the outbox as a fresh event with a zero
// attempt count and the payload carried verbatim. The new event is created
// before the dead letter is deleted, inside one transaction, so a crash
// between the two never loses the item.
func (uc *DeadLetterUseCase) Requeue(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var newEventID uuid.UUID

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		deadLetter, err := uc.deadLetterRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		event := &outboxDomain.OutboxEvent{
			ID:            uuid.Must(uuid.NewV7()),
			AggregateType: deadLetter.AggregateType,
			AggregateID:   deadLetter.AggregateID,
			EventType:     deadLetter.EventType,
			Payload:       deadLetter.Payload,
			Processed:     false,
			Attempts:      0,
		}
		if err := uc.outboxRepo.Create(ctx, event); err != nil {
			return err
		}
		newEventID = event.ID

		return uc.deadLetterRepo.Delete(ctx, id)
	})
	if err != nil {
		return uuid.Nil, err
	}

	return newEventID, nil
}

// Delete discards a dead letter permanently
func (uc *DeadLetterUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return uc.deadLetterRepo.Delete(ctx, id)
}
