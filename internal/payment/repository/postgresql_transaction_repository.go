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

// PostgreSQLTransactionRepository handles payment transaction persistence for PostgreSQL
type PostgreSQLTransactionRepository struct {
	db *sql.DB
}

// NewPostgreSQLTransactionRepository creates a new PostgreSQLTransactionRepository
func NewPostgreSQLTransactionRepository(db *sql.DB) *PostgreSQLTransactionRepository {
	return &PostgreSQLTransactionRepository{
		db: db,
	}
}

// Create inserts a new payment transaction
func (r *PostgreSQLTransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO payment_transactions (id, client_id, amount, currency, status, retry_count, gateway_reference, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, transaction.ID, transaction.ClientID, transaction.Amount,
		transaction.Currency, transaction.Status, transaction.RetryCount, transaction.GatewayReference)
	if err != nil {
		return apperrors.Wrap(err, "failed to create transaction")
	}
	return nil
}

// GetByID retrieves a payment transaction by ID
func (r *PostgreSQLTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var transaction domain.Transaction
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, amount, currency, status, retry_count, gateway_reference, created_at, updated_at
			  FROM payment_transactions WHERE id = $1`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&transaction.ID, &transaction.ClientID, &transaction.Amount, &transaction.Currency,
		&transaction.Status, &transaction.RetryCount, &transaction.GatewayReference,
		&transaction.CreatedAt, &transaction.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get transaction by id")
	}

	return &transaction, nil
}

// Update updates the mutable fields of a payment transaction
func (r *PostgreSQLTransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE payment_transactions
			  SET status = $1, retry_count = $2, gateway_reference = $3, updated_at = NOW()
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, transaction.Status, transaction.RetryCount,
		transaction.GatewayReference, transaction.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update transaction")
	}
	return nil
}
