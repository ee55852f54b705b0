// Package usecase implements the payment business logic and the idempotency
// admit gate.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/payments/internal/database"
	"github.com/allisson/payments/internal/payment/domain"

	apperrors "github.com/allisson/payments/internal/errors"
	outboxDomain "github.com/allisson/payments/internal/outbox/domain"
	appValidation "github.com/allisson/payments/internal/validation"
)

// ResultStatus classifies the admit decision for a payment request.
type ResultStatus string

const (
	ResultStatusAccepted         ResultStatus = "ACCEPTED"
	ResultStatusAlreadyProcessed ResultStatus = "ALREADY_PROCESSED"
	ResultStatusProcessing       ResultStatus = "PROCESSING"
	ResultStatusFailed           ResultStatus = "FAILED"
)

// Response messages replayed to clients. The completed/failed variants are
// also cached on the idempotency record by the dispatcher.
const (
	MessageAccepted   = "Payment request accepted and queued for processing"
	MessageProcessing = "Transaction is being processed"
	MessageFailed     = "Previous attempt failed"
)

// ProcessPaymentInput contains the input data for a payment request
type ProcessPaymentInput struct {
	ClientID           string `json:"client_id"`
	IdempotencyKey     string `json:"idempotency_key"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	SourceAccount      string `json:"source_account"`
	DestinationAccount string `json:"destination_account"`
}

// PaymentResult is the admit decision: the transaction it maps to, a result
// status, and the HTTP code/message the caller should return.
type PaymentResult struct {
	TransactionID uuid.UUID    `json:"transaction_id"`
	Status        ResultStatus `json:"status"`
	Code          int          `json:"code"`
	Message       string       `json:"message"`
}

// UseCase defines the interface for payment business logic operations
type UseCase interface {
	ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*PaymentResult, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// TransactionRepository interface defines transaction repository operations
type TransactionRepository interface {
	Create(ctx context.Context, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	Update(ctx context.Context, transaction *domain.Transaction) error
}

// IdempotencyRepository interface defines idempotency record repository operations
type IdempotencyRepository interface {
	Create(ctx context.Context, record *domain.IdempotencyRecord) error
	GetByClientIDAndKey(ctx context.Context, clientID string, key uuid.UUID) (*domain.IdempotencyRecord, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*domain.IdempotencyRecord, error)
	Update(ctx context.Context, record *domain.IdempotencyRecord) error
}

// OutboxEventRepository interface defines the outbox operations the gate needs
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// PaymentUseCase handles payment-related business logic
type PaymentUseCase struct {
	txManager       database.TxManager
	transactionRepo TransactionRepository
	idempotencyRepo IdempotencyRepository
	outboxRepo      OutboxEventRepository
}

// NewPaymentUseCase creates a new PaymentUseCase
func NewPaymentUseCase(
	txManager database.TxManager,
	transactionRepo TransactionRepository,
	idempotencyRepo IdempotencyRepository,
	outboxRepo OutboxEventRepository,
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:       txManager,
		transactionRepo: transactionRepo,
		idempotencyRepo: idempotencyRepo,
		outboxRepo:      outboxRepo,
	}
}

// validateProcessPaymentInput validates the payment input using jellydator/validation
func (uc *PaymentUseCase) validateProcessPaymentInput(input ProcessPaymentInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Amount,
			validation.Required.Error("amount is required"),
			appValidation.PositiveDecimal,
		),
		validation.Field(&input.Currency,
			validation.Required.Error("currency is required"),
			appValidation.CurrencyCode,
		),
		validation.Field(&input.SourceAccount,
			validation.Required.Error("source_account is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("source_account must be between 1 and 255 characters"),
		),
		validation.Field(&input.DestinationAccount,
			validation.Required.Error("destination_account is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("destination_account must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// ProcessPayment admits a payment request through the idempotency gate.
//
// A known (clientID, idempotencyKey) pair replays the recorded outcome and
// never creates a second transaction. An unknown pair atomically records the
// transaction, the idempotency claim and the outbox event; the dispatcher
// completes the record asynchronously. Two racing requests for the same pair
// resolve via the unique constraint: the loser re-reads the winner's record.
func (uc *PaymentUseCase) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*PaymentResult, error) {
	clientID := strings.TrimSpace(input.ClientID)
	if clientID == "" {
		return nil, domain.ErrClientIDRequired
	}

	idempotencyKey, err := uuid.Parse(strings.TrimSpace(input.IdempotencyKey))
	if err != nil {
		return nil, domain.ErrInvalidIdempotencyKey
	}

	if err := uc.validateProcessPaymentInput(input); err != nil {
		return nil, err
	}

	// Fast path: replay a previously recorded outcome
	record, err := uc.idempotencyRepo.GetByClientIDAndKey(ctx, clientID, idempotencyKey)
	if err == nil {
		return replayResult(record), nil
	}
	if !errors.Is(err, domain.ErrIdempotencyRecordNotFound) {
		return nil, err
	}

	transaction := &domain.Transaction{
		ID:         uuid.Must(uuid.NewV7()),
		ClientID:   clientID,
		Amount:     input.Amount,
		Currency:   input.Currency,
		Status:     domain.TransactionStatusPending,
		RetryCount: 0,
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.transactionRepo.Create(ctx, transaction); err != nil {
			return err
		}

		record := &domain.IdempotencyRecord{
			ID:             uuid.Must(uuid.NewV7()),
			ClientID:       clientID,
			IdempotencyKey: idempotencyKey,
			Status:         domain.IdempotencyStatusInProgress,
			TransactionID:  transaction.ID,
		}
		if err := uc.idempotencyRepo.Create(ctx, record); err != nil {
			return err
		}

		eventPayload := map[string]interface{}{
			"transaction_id":      transaction.ID,
			"client_id":           clientID,
			"amount":              input.Amount,
			"currency":            input.Currency,
			"source_account":      input.SourceAccount,
			"destination_account": input.DestinationAccount,
		}
		payloadJSON, err := json.Marshal(eventPayload)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal event payload")
		}

		outboxEvent := &outboxDomain.OutboxEvent{
			ID:            uuid.Must(uuid.NewV7()),
			AggregateType: outboxDomain.AggregateTypePaymentTransaction,
			AggregateID:   transaction.ID,
			EventType:     outboxDomain.EventTypePaymentCreated,
			Payload:       string(payloadJSON),
			Processed:     false,
			Attempts:      0,
		}
		return uc.outboxRepo.Create(ctx, outboxEvent)
	})

	if err != nil {
		// Lost the uniqueness race: another request claimed the key after our
		// lookup. The winner's insert is committed by now, replay its record.
		if errors.Is(err, domain.ErrIdempotencyKeyExists) {
			record, lookupErr := uc.idempotencyRepo.GetByClientIDAndKey(ctx, clientID, idempotencyKey)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return replayResult(record), nil
		}
		return nil, err
	}

	return &PaymentResult{
		TransactionID: transaction.ID,
		Status:        ResultStatusAccepted,
		Code:          http.StatusCreated,
		Message:       MessageAccepted,
	}, nil
}

// GetTransaction retrieves a transaction by ID
func (uc *PaymentUseCase) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}

// replayResult maps an existing idempotency record to the response the
// original request produced (or is still producing)
func replayResult(record *domain.IdempotencyRecord) *PaymentResult {
	switch record.Status {
	case domain.IdempotencyStatusCompleted:
		code := http.StatusOK
		if record.ResponseCode != nil {
			code = *record.ResponseCode
		}
		message := ""
		if record.ResponseBody != nil {
			message = *record.ResponseBody
		}
		return &PaymentResult{
			TransactionID: record.TransactionID,
			Status:        ResultStatusAlreadyProcessed,
			Code:          code,
			Message:       message,
		}
	case domain.IdempotencyStatusFailed:
		code := http.StatusInternalServerError
		if record.ResponseCode != nil {
			code = *record.ResponseCode
		}
		message := MessageFailed
		if record.ResponseBody != nil {
			message = *record.ResponseBody
		}
		return &PaymentResult{
			TransactionID: record.TransactionID,
			Status:        ResultStatusFailed,
			Code:          code,
			Message:       message,
		}
	default:
		return &PaymentResult{
			TransactionID: record.TransactionID,
			Status:        ResultStatusProcessing,
			Code:          http.StatusAccepted,
			Message:       MessageProcessing,
		}
	}
}
