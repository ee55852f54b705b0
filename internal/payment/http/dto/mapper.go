// Package dto provides data transfer objects for the payment HTTP layer.
package dto

import (
	"github.com/google/uuid"

	"github.com/allisson/payments/internal/payment/domain"
	"github.com/allisson/payments/internal/payment/usecase"
)

// ToProcessPaymentInput converts a PaymentRequest and the idempotency headers
// to a use case input
func ToProcessPaymentInput(req PaymentRequest, clientID, idempotencyKey string) usecase.ProcessPaymentInput {
	return usecase.ProcessPaymentInput{
		ClientID:           clientID,
		IdempotencyKey:     idempotencyKey,
		Amount:             req.Amount,
		Currency:           req.Currency,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
	}
}

// MapResultToResponse converts a use case PaymentResult to a PaymentResponse DTO
func MapResultToResponse(result *usecase.PaymentResult) PaymentResponse {
	response := PaymentResponse{
		Status:  string(result.Status),
		Code:    result.Code,
		Message: result.Message,
	}
	if result.TransactionID != uuid.Nil {
		transactionID := result.TransactionID
		response.TransactionID = &transactionID
	}
	return response
}

// MapTransactionToResponse converts a domain Transaction to a TransactionResponse DTO
func MapTransactionToResponse(transaction *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               transaction.ID,
		ClientID:         transaction.ClientID,
		Amount:           transaction.Amount,
		Currency:         transaction.Currency,
		Status:           string(transaction.Status),
		RetryCount:       transaction.RetryCount,
		GatewayReference: transaction.GatewayReference,
		CreatedAt:        transaction.CreatedAt,
		UpdatedAt:        transaction.UpdatedAt,
	}
}
