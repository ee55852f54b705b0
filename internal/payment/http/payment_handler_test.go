package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/payments/internal/payment/domain"
	"github.com/allisson/payments/internal/payment/http/dto"
	"github.com/allisson/payments/internal/payment/usecase"
)

// MockPaymentUseCase is a mock implementation of usecase.UseCase
type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) ProcessPayment(
	ctx context.Context,
	input usecase.ProcessPaymentInput,
) (*usecase.PaymentResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.PaymentResult), args.Error(1)
}

func (m *MockPaymentUseCase) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// setupTestPaymentHandler creates a test handler with mocked dependencies.
func setupTestPaymentHandler(t *testing.T) (*PaymentHandler, *MockPaymentUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &MockPaymentUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewPaymentHandler(mockUseCase, "demo-client", logger)

	return handler, mockUseCase
}

func paymentRequestBody() dto.PaymentRequest {
	return dto.PaymentRequest{
		Amount:             "150.75",
		Currency:           "INR",
		SourceAccount:      "ACC-001",
		DestinationAccount: "ACC-002",
	}
}

func TestPaymentHandler_ProcessHandler(t *testing.T) {
	t.Run("Success_Accepted", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		key := uuid.Must(uuid.NewV7())
		transactionID := uuid.Must(uuid.NewV7())
		result := &usecase.PaymentResult{
			TransactionID: transactionID,
			Status:        usecase.ResultStatusAccepted,
			Code:          http.StatusCreated,
			Message:       usecase.MessageAccepted,
		}

		mockUseCase.On("ProcessPayment", mock.Anything, mock.MatchedBy(func(input usecase.ProcessPaymentInput) bool {
			return input.ClientID == "client-a" && input.IdempotencyKey == key.String()
		})).Return(result, nil)

		c, w := createTestContext(http.MethodPost, "/v1/payments", paymentRequestBody())
		c.Request.Header.Set(HeaderIdempotencyKey, key.String())
		c.Request.Header.Set(HeaderClientID, "client-a")

		handler.ProcessHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.PaymentResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "ACCEPTED", response.Status)
		assert.Equal(t, http.StatusCreated, response.Code)
		require.NotNil(t, response.TransactionID)
		assert.Equal(t, transactionID, *response.TransactionID)
	})

	t.Run("Success_DefaultClientID", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		key := uuid.Must(uuid.NewV7())
		result := &usecase.PaymentResult{
			TransactionID: uuid.Must(uuid.NewV7()),
			Status:        usecase.ResultStatusAccepted,
			Code:          http.StatusCreated,
			Message:       usecase.MessageAccepted,
		}

		mockUseCase.On("ProcessPayment", mock.Anything, mock.MatchedBy(func(input usecase.ProcessPaymentInput) bool {
			return input.ClientID == "demo-client"
		})).Return(result, nil)

		c, w := createTestContext(http.MethodPost, "/v1/payments", paymentRequestBody())
		c.Request.Header.Set(HeaderIdempotencyKey, key.String())

		handler.ProcessHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Replay_UsesCachedCode", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		key := uuid.Must(uuid.NewV7())
		result := &usecase.PaymentResult{
			TransactionID: uuid.Must(uuid.NewV7()),
			Status:        usecase.ResultStatusAlreadyProcessed,
			Code:          http.StatusOK,
			Message:       "Payment processed successfully",
		}

		mockUseCase.On("ProcessPayment", mock.Anything, mock.Anything).Return(result, nil)

		c, w := createTestContext(http.MethodPost, "/v1/payments", paymentRequestBody())
		c.Request.Header.Set(HeaderIdempotencyKey, key.String())

		handler.ProcessHandler(c)

		// The replayed HTTP status matches the cached code, not 201
		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.PaymentResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "ALREADY_PROCESSED", response.Status)
	})

	t.Run("Error_MissingIdempotencyKey", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/payments", paymentRequestBody())

		handler.ProcessHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response dto.PaymentResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "INVALID_TOKEN", response.Status)
		assert.Nil(t, response.TransactionID)

		mockUseCase.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything)
	})

	t.Run("Error_MalformedIdempotencyKey", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/payments", paymentRequestBody())
		c.Request.Header.Set(HeaderIdempotencyKey, "not-a-uuid")

		handler.ProcessHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response dto.PaymentResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "INVALID_TOKEN", response.Status)

		mockUseCase.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidBody", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		body := paymentRequestBody()
		body.Amount = "0.00"

		c, w := createTestContext(http.MethodPost, "/v1/payments", body)
		c.Request.Header.Set(HeaderIdempotencyKey, uuid.Must(uuid.NewV7()).String())

		handler.ProcessHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything)
	})
}

func TestPaymentHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		transactionID := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()
		transaction := &domain.Transaction{
			ID:         transactionID,
			ClientID:   "demo-client",
			Amount:     "150.75",
			Currency:   "INR",
			Status:     domain.TransactionStatusSuccess,
			RetryCount: 1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		mockUseCase.On("GetTransaction", mock.Anything, transactionID).Return(transaction, nil)

		c, w := createTestContext(http.MethodGet, "/v1/payments/"+transactionID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: transactionID.String()}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.TransactionResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, transactionID, response.ID)
		assert.Equal(t, "SUCCESS", response.Status)
		assert.Equal(t, "150.75", response.Amount)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/payments/not-a-uuid", nil)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "GetTransaction", mock.Anything, mock.Anything)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestPaymentHandler(t)

		unknownID := uuid.Must(uuid.NewV7())
		mockUseCase.On("GetTransaction", mock.Anything, unknownID).
			Return(nil, domain.ErrTransactionNotFound)

		c, w := createTestContext(http.MethodGet, "/v1/payments/"+unknownID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: unknownID.String()}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
