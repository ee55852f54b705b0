// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/errors"
)

// Aggregate and event types written by the payment module.
const (
	AggregateTypePaymentTransaction = "PaymentTransaction"
	EventTypePaymentCreated         = "PAYMENT_CREATED"
)

// OutboxEvent represents a pending work item in the transactional outbox pattern.
// It is written in the same transaction as the state change that must eventually
// trigger a gateway dispatch, decoupling acceptance from execution.
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       string
	Processed     bool
	Attempts      int
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

// Domain-specific errors for outbox operations.
var (
	// ErrOutboxEventNotFound indicates the requested outbox event does not exist.
	ErrOutboxEventNotFound = errors.Wrap(errors.ErrNotFound, "outbox event not found")
)
