// Package repository provides data persistence implementations for outbox events.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/outbox/domain"

	apperrors "github.com/allisson/payments/internal/errors"
)

// PostgreSQLOutboxRepository handles outbox event persistence for PostgreSQL
type PostgreSQLOutboxRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxRepository creates a new PostgreSQLOutboxRepository
func NewPostgreSQLOutboxRepository(db *sql.DB) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{
		db: db,
	}
}

// Create inserts a new outbox event
func (r *PostgreSQLOutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, processed, attempts, processed_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, err := querier.ExecContext(ctx, query, event.ID, event.AggregateType, event.AggregateID,
		event.EventType, event.Payload, event.Processed, event.Attempts, event.ProcessedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// GetByID retrieves an outbox event by ID
func (r *PostgreSQLOutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error) {
	var event domain.OutboxEvent
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, processed, attempts, processed_at, created_at
			  FROM outbox_events WHERE id = $1`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType,
		&event.Payload, &event.Processed, &event.Attempts, &event.ProcessedAt,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutboxEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get outbox event by id")
	}

	return &event, nil
}

// ClaimNext locks and returns the oldest unprocessed outbox event.
// Rows locked by concurrent workers are skipped, so each event is
// claimed by at most one worker at a time. Must run inside a transaction.
func (r *PostgreSQLOutboxRepository) ClaimNext(ctx context.Context) (*domain.OutboxEvent, error) {
	var event domain.OutboxEvent
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, processed, attempts, processed_at, created_at
			  FROM outbox_events
			  WHERE processed = false
			  ORDER BY created_at ASC
			  LIMIT 1
			  FOR UPDATE SKIP LOCKED`

	err := querier.QueryRowContext(ctx, query).Scan(
		&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType,
		&event.Payload, &event.Processed, &event.Attempts, &event.ProcessedAt,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutboxEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to claim outbox event")
	}

	return &event, nil
}

// Update updates the processing state of an outbox event
func (r *PostgreSQLOutboxRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET processed = $1, attempts = $2, processed_at = $3
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, event.Processed, event.Attempts, event.ProcessedAt, event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox event")
	}
	return nil
}

// Delete removes an outbox event
func (r *PostgreSQLOutboxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_events WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete outbox event")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return domain.ErrOutboxEventNotFound
	}
	return nil
}
