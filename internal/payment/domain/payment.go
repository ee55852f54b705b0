// Package domain defines the core payment domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/errors"
)

// TransactionStatus represents the lifecycle state of a payment transaction.
// Transitions are one way only: PENDING to SUCCESS or PENDING to FAILED.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// Transaction represents a payment intent recorded in the ledger.
// Amounts are decimal strings end to end, no floating point math.
type Transaction struct {
	ID               uuid.UUID
	ClientID         string
	Amount           string
	Currency         string
	Status           TransactionStatus
	RetryCount       int
	GatewayReference string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IdempotencyStatus represents the state of an idempotency record.
type IdempotencyStatus string

const (
	IdempotencyStatusInProgress IdempotencyStatus = "IN_PROGRESS"
	IdempotencyStatusCompleted  IdempotencyStatus = "COMPLETED"
	IdempotencyStatusFailed     IdempotencyStatus = "FAILED"
)

// IdempotencyRecord maps a (clientID, idempotencyKey) pair to at most one
// transaction lifecycle. Once COMPLETED or FAILED the cached response is
// immutable and replayed verbatim on duplicate requests.
type IdempotencyRecord struct {
	ID             uuid.UUID
	ClientID       string
	IdempotencyKey uuid.UUID
	Status         IdempotencyStatus
	ResponseCode   *int
	ResponseBody   *string
	TransactionID  uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Domain-specific errors for payment operations.
var (
	// ErrTransactionNotFound indicates the requested transaction does not exist.
	ErrTransactionNotFound = errors.Wrap(errors.ErrNotFound, "transaction not found")

	// ErrIdempotencyRecordNotFound indicates no record exists for the key pair.
	ErrIdempotencyRecordNotFound = errors.Wrap(errors.ErrNotFound, "idempotency record not found")

	// ErrIdempotencyKeyExists indicates another request already claimed the key pair.
	ErrIdempotencyKeyExists = errors.Wrap(errors.ErrConflict, "idempotency key already exists")

	// ErrInvalidIdempotencyKey indicates the supplied idempotency key is not a valid UUID.
	ErrInvalidIdempotencyKey = errors.Wrap(errors.ErrInvalidInput, "invalid idempotency key")

	// ErrClientIDRequired indicates the client id is missing.
	ErrClientIDRequired = errors.Wrap(errors.ErrInvalidInput, "client id is required")
)
