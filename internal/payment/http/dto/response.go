// Package dto provides data transfer objects for the payment HTTP layer.
package dto

import (
	"time"

	"github.com/google/uuid"
)

// PaymentResponse represents the admit decision returned for a payment request.
// Code mirrors the HTTP status the response is served with, so replayed
// duplicates stay byte-for-byte identical to the original response.
type PaymentResponse struct {
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Status        string     `json:"status"`
	Code          int        `json:"code"`
	Message       string     `json:"message"`
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID               uuid.UUID `json:"id"`
	ClientID         string    `json:"client_id"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	RetryCount       int       `json:"retry_count"`
	GatewayReference string    `json:"gateway_reference,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
