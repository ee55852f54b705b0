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

// MySQLIdempotencyRepository handles idempotency record persistence for MySQL
type MySQLIdempotencyRepository struct {
	db *sql.DB
}

// NewMySQLIdempotencyRepository creates a new MySQLIdempotencyRepository
func NewMySQLIdempotencyRepository(db *sql.DB) *MySQLIdempotencyRepository {
	return &MySQLIdempotencyRepository{
		db: db,
	}
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "duplicate entry") || strings.Contains(errStr, "1062")
}

// Create inserts a new idempotency record
func (r *MySQLIdempotencyRepository) Create(ctx context.Context, record *domain.IdempotencyRecord) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO idempotency_keys (id, client_id, idempotency_key, status, response_code, response_body, transaction_id, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal idempotency record id")
	}
	keyBytes, err := record.IdempotencyKey.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal idempotency key")
	}
	txBytes, err := record.TransactionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal transaction id")
	}

	_, err = querier.ExecContext(ctx, query, idBytes, record.ClientID, keyBytes,
		record.Status, record.ResponseCode, record.ResponseBody, txBytes)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return domain.ErrIdempotencyKeyExists
		}
		return apperrors.Wrap(err, "failed to create idempotency record")
	}
	return nil
}

// GetByClientIDAndKey retrieves an idempotency record by client id and idempotency key
func (r *MySQLIdempotencyRepository) GetByClientIDAndKey(ctx context.Context, clientID string, key uuid.UUID) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, idempotency_key, status, response_code, response_body, transaction_id, created_at, updated_at
			  FROM idempotency_keys WHERE client_id = ? AND idempotency_key = ?`

	keyBytes, err := key.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal idempotency key")
	}

	var scannedID, scannedKey, scannedTxID []byte
	err = querier.QueryRowContext(ctx, query, clientID, keyBytes).Scan(
		&scannedID, &record.ClientID, &scannedKey, &record.Status,
		&record.ResponseCode, &record.ResponseBody, &scannedTxID,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdempotencyRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get idempotency record")
	}

	if err := record.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal idempotency record id")
	}
	if err := record.IdempotencyKey.UnmarshalBinary(scannedKey); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal idempotency key")
	}
	if err := record.TransactionID.UnmarshalBinary(scannedTxID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal transaction id")
	}

	return &record, nil
}

// GetByTransactionID retrieves an idempotency record by its transaction id
func (r *MySQLIdempotencyRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, idempotency_key, status, response_code, response_body, transaction_id, created_at, updated_at
			  FROM idempotency_keys WHERE transaction_id = ?`

	txBytes, err := transactionID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal transaction id")
	}

	var scannedID, scannedKey, scannedTxID []byte
	err = querier.QueryRowContext(ctx, query, txBytes).Scan(
		&scannedID, &record.ClientID, &scannedKey, &record.Status,
		&record.ResponseCode, &record.ResponseBody, &scannedTxID,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdempotencyRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get idempotency record")
	}

	if err := record.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal idempotency record id")
	}
	if err := record.IdempotencyKey.UnmarshalBinary(scannedKey); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal idempotency key")
	}
	if err := record.TransactionID.UnmarshalBinary(scannedTxID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal transaction id")
	}

	return &record, nil
}

// Update updates the status and cached response of an idempotency record
func (r *MySQLIdempotencyRepository) Update(ctx context.Context, record *domain.IdempotencyRecord) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE idempotency_keys
			  SET status = ?, response_code = ?, response_body = ?, updated_at = NOW()
			  WHERE id = ?`

	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal idempotency record id")
	}

	_, err = querier.ExecContext(ctx, query, record.Status, record.ResponseCode,
		record.ResponseBody, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update idempotency record")
	}
	return nil
}
