// Package repository provides data persistence implementations for payment entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/payment/domain"

	apperrors "github.com/allisson/payments/internal/errors"
)

// PostgreSQLIdempotencyRepository handles idempotency record persistence for PostgreSQL
type PostgreSQLIdempotencyRepository struct {
	db *sql.DB
}

// NewPostgreSQLIdempotencyRepository creates a new PostgreSQLIdempotencyRepository
func NewPostgreSQLIdempotencyRepository(db *sql.DB) *PostgreSQLIdempotencyRepository {
	return &PostgreSQLIdempotencyRepository{
		db: db,
	}
}

// Create inserts a new idempotency record
func (r *PostgreSQLIdempotencyRepository) Create(ctx context.Context, record *domain.IdempotencyRecord) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO idempotency_keys (id, client_id, idempotency_key, status, response_code, response_body, transaction_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, record.ID, record.ClientID, record.IdempotencyKey,
		record.Status, record.ResponseCode, record.ResponseBody, record.TransactionID)
	if err != nil {
		// Check for unique constraint violation on (client_id, idempotency_key)
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrIdempotencyKeyExists
		}
		return apperrors.Wrap(err, "failed to create idempotency record")
	}
	return nil
}

// GetByClientIDAndKey retrieves an idempotency record by its natural key
func (r *PostgreSQLIdempotencyRepository) GetByClientIDAndKey(
	ctx context.Context,
	clientID string,
	key uuid.UUID,
) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, idempotency_key, status, response_code, response_body, transaction_id, created_at, updated_at
			  FROM idempotency_keys WHERE client_id = $1 AND idempotency_key = $2`

	err := querier.QueryRowContext(ctx, query, clientID, key).Scan(
		&record.ID, &record.ClientID, &record.IdempotencyKey, &record.Status,
		&record.ResponseCode, &record.ResponseBody, &record.TransactionID,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdempotencyRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get idempotency record by client id and key")
	}

	return &record, nil
}

// GetByTransactionID retrieves the idempotency record linked to a transaction
func (r *PostgreSQLIdempotencyRepository) GetByTransactionID(
	ctx context.Context,
	transactionID uuid.UUID,
) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, idempotency_key, status, response_code, response_body, transaction_id, created_at, updated_at
			  FROM idempotency_keys WHERE transaction_id = $1`

	err := querier.QueryRowContext(ctx, query, transactionID).Scan(
		&record.ID, &record.ClientID, &record.IdempotencyKey, &record.Status,
		&record.ResponseCode, &record.ResponseBody, &record.TransactionID,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdempotencyRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get idempotency record by transaction id")
	}

	return &record, nil
}

// Update updates the status and cached response of an idempotency record
func (r *PostgreSQLIdempotencyRepository) Update(ctx context.Context, record *domain.IdempotencyRecord) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE idempotency_keys
			  SET status = $1, response_code = $2, response_body = $3, updated_at = NOW()
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, record.Status, record.ResponseCode, record.ResponseBody, record.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update idempotency record")
	}
	return nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
