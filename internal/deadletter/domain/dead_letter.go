// Package domain defines the core dead letter domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/errors"
)

// DeadLetter quarantines an outbox event that exhausted automated retry.
// SourceEventID keeps the original outbox event id for audit; a dead letter
// existing for an aggregate implies the outbox event no longer does.
type DeadLetter struct {
	ID            uuid.UUID
	SourceEventID uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       string
	ErrorMessage  string
	Attempts      int
	CreatedAt     time.Time
	LastAttemptAt time.Time
}

// Domain-specific errors for dead letter operations.
var (
	// ErrDeadLetterNotFound indicates the requested dead letter does not exist.
	ErrDeadLetterNotFound = errors.Wrap(errors.ErrNotFound, "dead letter not found")
)
