// Package repository provides data persistence implementations for dead letters.
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

// PostgreSQLDeadLetterRepository handles dead letter persistence for PostgreSQL
type PostgreSQLDeadLetterRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeadLetterRepository creates a new PostgreSQLDeadLetterRepository
func NewPostgreSQLDeadLetterRepository(db *sql.DB) *PostgreSQLDeadLetterRepository {
	return &PostgreSQLDeadLetterRepository{
		db: db,
	}
}

// Create inserts a new dead letter
func (r *PostgreSQLDeadLetterRepository) Create(ctx context.Context, deadLetter *domain.DeadLetter) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO dead_letters (id, source_event_id, aggregate_type, aggregate_id, event_type, payload, error_message, attempts, created_at, last_attempt_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), $9)`

	_, err := querier.ExecContext(ctx, query, deadLetter.ID, deadLetter.SourceEventID,
		deadLetter.AggregateType, deadLetter.AggregateID, deadLetter.EventType,
		deadLetter.Payload, deadLetter.ErrorMessage, deadLetter.Attempts, deadLetter.LastAttemptAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create dead letter")
	}
	return nil
}

// GetByID retrieves a dead letter by ID
func (r *PostgreSQLDeadLetterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeadLetter, error) {
	var deadLetter domain.DeadLetter
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, source_event_id, aggregate_type, aggregate_id, event_type, payload, error_message, attempts, created_at, last_attempt_at
			  FROM dead_letters WHERE id = $1`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&deadLetter.ID, &deadLetter.SourceEventID, &deadLetter.AggregateType,
		&deadLetter.AggregateID, &deadLetter.EventType, &deadLetter.Payload,
		&deadLetter.ErrorMessage, &deadLetter.Attempts, &deadLetter.CreatedAt,
		&deadLetter.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeadLetterNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get dead letter by id")
	}

	return &deadLetter, nil
}

// List retrieves dead letters ordered by creation time with pagination
func (r *PostgreSQLDeadLetterRepository) List(ctx context.Context, offset, limit int) ([]*domain.DeadLetter, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, source_event_id, aggregate_type, aggregate_id, event_type, payload, error_message, attempts, created_at, last_attempt_at
			  FROM dead_letters ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer func() { _ = rows.Close() }()

	var deadLetters []*domain.DeadLetter
	for rows.Next() {
		var deadLetter domain.DeadLetter
		err := rows.Scan(
			&deadLetter.ID, &deadLetter.SourceEventID, &deadLetter.AggregateType,
			&deadLetter.AggregateID, &deadLetter.EventType, &deadLetter.Payload,
			&deadLetter.ErrorMessage, &deadLetter.Attempts, &deadLetter.CreatedAt,
			&deadLetter.LastAttemptAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter")
		}
		deadLetters = append(deadLetters, &deadLetter)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letters")
	}

	return deadLetters, nil
}

// Delete removes a dead letter
func (r *PostgreSQLDeadLetterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM dead_letters WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
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
