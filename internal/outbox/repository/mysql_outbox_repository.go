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

// MySQLOutboxRepository handles outbox event persistence for MySQL
type MySQLOutboxRepository struct {
	db *sql.DB
}

// NewMySQLOutboxRepository creates a new MySQLOutboxRepository
func NewMySQLOutboxRepository(db *sql.DB) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{
		db: db,
	}
}

// Create inserts a new outbox event
func (r *MySQLOutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, processed, attempts, processed_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())`

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}
	aggregateBytes, err := event.AggregateID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal aggregate id")
	}

	_, err = querier.ExecContext(ctx, query, idBytes, event.AggregateType, aggregateBytes,
		event.EventType, event.Payload, event.Processed, event.Attempts, event.ProcessedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// GetByID retrieves an outbox event by ID
func (r *MySQLOutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, processed, attempts, processed_at, created_at
			  FROM outbox_events WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	return r.scanEvent(querier.QueryRowContext(ctx, query, idBytes))
}

// ClaimNext locks and returns the oldest unprocessed outbox event.
// Rows locked by concurrent workers are skipped, so each event is
// claimed by at most one worker at a time. Must run inside a transaction.
func (r *MySQLOutboxRepository) ClaimNext(ctx context.Context) (*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, processed, attempts, processed_at, created_at
			  FROM outbox_events
			  WHERE processed = false
			  ORDER BY created_at ASC
			  LIMIT 1
			  FOR UPDATE SKIP LOCKED`

	return r.scanEvent(querier.QueryRowContext(ctx, query))
}

// Update updates the processing state of an outbox event
func (r *MySQLOutboxRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET processed = ?, attempts = ?, processed_at = ?
			  WHERE id = ?`

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	_, err = querier.ExecContext(ctx, query, event.Processed, event.Attempts, event.ProcessedAt, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox event")
	}
	return nil
}

// Delete removes an outbox event
func (r *MySQLOutboxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_events WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	result, err := querier.ExecContext(ctx, query, idBytes)
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

// scanEvent scans a single outbox event row, converting BINARY(16) ids
func (r *MySQLOutboxRepository) scanEvent(row *sql.Row) (*domain.OutboxEvent, error) {
	var event domain.OutboxEvent
	var scannedID, scannedAggregateID []byte

	err := row.Scan(
		&scannedID, &event.AggregateType, &scannedAggregateID, &event.EventType,
		&event.Payload, &event.Processed, &event.Attempts, &event.ProcessedAt,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutboxEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan outbox event")
	}

	if err := event.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal outbox event id")
	}
	if err := event.AggregateID.UnmarshalBinary(scannedAggregateID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal aggregate id")
	}

	return &event, nil
}
