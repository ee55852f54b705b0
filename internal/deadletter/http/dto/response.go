// Package dto provides data transfer objects for the dead letter HTTP layer.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/deadletter/domain"
)

// DeadLetterResponse represents a quarantined event in API responses
type DeadLetterResponse struct {
	ID            uuid.UUID `json:"id"`
	SourceEventID uuid.UUID `json:"source_event_id"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   uuid.UUID `json:"aggregate_id"`
	EventType     string    `json:"event_type"`
	Payload       string    `json:"payload"`
	ErrorMessage  string    `json:"error_message"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// ListDeadLettersResponse represents a paginated list of dead letters in API responses.
type ListDeadLettersResponse struct {
	Data []DeadLetterResponse `json:"data"`
}

// RequeueResponse contains the identity of the outbox event created by a requeue.
type RequeueResponse struct {
	OutboxEventID uuid.UUID `json:"outbox_event_id"`
}

// MapDeadLetterToResponse converts a domain DeadLetter to a DeadLetterResponse DTO
func MapDeadLetterToResponse(deadLetter *domain.DeadLetter) DeadLetterResponse {
	return DeadLetterResponse{
		ID:            deadLetter.ID,
		SourceEventID: deadLetter.SourceEventID,
		AggregateType: deadLetter.AggregateType,
		AggregateID:   deadLetter.AggregateID,
		EventType:     deadLetter.EventType,
		Payload:       deadLetter.Payload,
		ErrorMessage:  deadLetter.ErrorMessage,
		Attempts:      deadLetter.Attempts,
		CreatedAt:     deadLetter.CreatedAt,
		LastAttemptAt: deadLetter.LastAttemptAt,
	}
}

// MapDeadLettersToListResponse converts a slice of domain dead letters to a list API response.
func MapDeadLettersToListResponse(deadLetters []*domain.DeadLetter) ListDeadLettersResponse {
	responses := make([]DeadLetterResponse, 0, len(deadLetters))
	for _, deadLetter := range deadLetters {
		responses = append(responses, MapDeadLetterToResponse(deadLetter))
	}
	return ListDeadLettersResponse{
		Data: responses,
	}
}
