package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/deadletter/domain"

	apperrors "github.com/allisson/payments/internal/errors"
)

// MySQLDeadLetterRepository handles dead letter persistence for MySQL
type MySQLDeadLetterRepository struct {
	db *sql.DB
}

// NewMySQLDeadLetterRepository creates a new MySQLDeadLetterRepository
func NewMySQLDeadLetterRepository(db *sql.DB) *MySQLDeadLetterRepository {
	return &MySQLDeadLetterRepository{
		db: db,
	}
}

// Create inserts a new dead letter
func (r *MySQLDeadLetterRepository) Create(ctx context.Context, deadLetter *domain.DeadLetter) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO dead_letters (id, source_event_id, aggregate_type, aggregate_id, event_type, payload, error_message, attempts, created_at, last_attempt_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), ?)`

	idBytes, err := deadLetter.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal dead letter id")
	}
	sourceBytes, err := deadLetter.SourceEventID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal source event id")
	}
	aggregateBytes, err := deadLetter.AggregateID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal aggregate id")
	}

	_, err = querier.ExecContext(ctx, query, idBytes, sourceBytes, deadLetter.AggregateType,
		aggregateBytes, deadLetter.EventType, deadLetter.Payload, deadLetter.ErrorMessage,
		deadLetter.Attempts, deadLetter.LastAttemptAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create dead letter")
	}
	return nil
}

// GetByID retrieves a dead letter by ID
func (r *MySQLDeadLetterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeadLetter, error) {
	var deadLetter domain.DeadLetter
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, source_event_id, aggregate_type, aggregate_id, event_type, payload, error_message, attempts, created_at, last_attempt_at
			  FROM dead_letters WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal dead letter id")
	}

	var scannedID, scannedSourceID, scannedAggregateID []byte
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(
		&scannedID, &scannedSourceID, &deadLetter.AggregateType,
		&scannedAggregateID, &deadLetter.EventType, &deadLetter.Payload,
		&deadLetter.ErrorMessage, &deadLetter.Attempts, &deadLetter.CreatedAt,
		&deadLetter.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeadLetterNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get dead letter by id")
	}

	if err := deadLetter.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal dead letter id")
	}
	if err := deadLetter.SourceEventID.UnmarshalBinary(scannedSourceID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal source event id")
	}
	if err := deadLetter.AggregateID.UnmarshalBinary(scannedAggregateID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal aggregate id")
	}

	return &deadLetter, nil
}

// List retrieves dead letters ordered by creation time with pagination
func (r *MySQLDeadLetterRepository) List(ctx context.Context, offset, limit int) ([]*domain.DeadLetter, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, source_event_id, aggregate_type, aggregate_id, event_type, payload, error_message, attempts, created_at, last_attempt_at
			  FROM dead_letters ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer func() { _ = rows.Close() }()

	var deadLetters []*domain.DeadLetter
	for rows.Next() {
		var deadLetter domain.DeadLetter
		var scannedID, scannedSourceID, scannedAggregateID []byte
		err := rows.Scan(
			&scannedID, &scannedSourceID, &deadLetter.AggregateType,
			&scannedAggregateID, &deadLetter.EventType, &deadLetter.Payload,
			&deadLetter.ErrorMessage, &deadLetter.Attempts, &deadLetter.CreatedAt,
			&deadLetter.LastAttemptAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter")
		}
		if err := deadLetter.ID.UnmarshalBinary(scannedID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal dead letter id")
		}
		if err := deadLetter.SourceEventID.UnmarshalBinary(scannedSourceID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal source event id")
		}
		if err := deadLetter.AggregateID.UnmarshalBinary(scannedAggregateID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal aggregate id")
		}
		deadLetters = append(deadLetters, &deadLetter)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letters")
	}

	return deadLetters, nil
}

// Delete removes a dead letter
func (r *MySQLDeadLetterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM dead_letters WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal dead letter id")
	}

	result, err := querier.ExecContext(ctx, query, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete dead letter")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return domain.ErrDeadLetterNotFound
	}
	return nil
}
