// Package repository provides data persistence implementations for payment entities.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/payment/domain"

	apperrors "github.com/allisson/payments/internal/errors"
)

// MySQLTransactionRepository handles payment transaction persistence for MySQL
type MySQLTransactionRepository struct {
	db *sql.DB
}

// NewMySQLTransactionRepository creates a new MySQLTransactionRepository
func NewMySQLTransactionRepository(db *sql.DB) *MySQLTransactionRepository {
	return &MySQLTransactionRepository{
		db: db,
	}
}

// Create inserts a new payment transaction
func (r *MySQLTransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO payment_transactions (id, client_id, amount, currency, status, retry_count, gateway_reference, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := transaction.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal transaction id")
	}

	_, err = querier.ExecContext(ctx, query, idBytes, transaction.ClientID, transaction.Amount,
		transaction.Currency, transaction.Status, transaction.RetryCount, transaction.GatewayReference)
	if err != nil {
		return apperrors.Wrap(err, "failed to create transaction")
	}
	return nil
}

// GetByID retrieves a payment transaction by ID
func (r *MySQLTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var transaction domain.Transaction
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, amount, currency, status, retry_count, gateway_reference, created_at, updated_at
			  FROM payment_transactions WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal transaction id")
	}

	var scannedID []byte
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(
		&scannedID, &transaction.ClientID, &transaction.Amount, &transaction.Currency,
		&transaction.Status, &transaction.RetryCount, &transaction.GatewayReference,
		&transaction.CreatedAt, &transaction.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get transaction by id")
	}

	// Convert bytes back to UUID
	if err := transaction.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal transaction id")
	}

	return &transaction, nil
}

// Update updates the mutable fields of a payment transaction
func (r *MySQLTransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE payment_transactions
			  SET status = ?, retry_count = ?, gateway_reference = ?, updated_at = NOW()
			  WHERE id = ?`

	idBytes, err := transaction.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal transaction id")
	}

	_, err = querier.ExecContext(ctx, query, transaction.Status, transaction.RetryCount,
		transaction.GatewayReference, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update transaction")
	}
	return nil
}
