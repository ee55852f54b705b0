// Package http provides HTTP handlers for payment operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/payments/internal/httputil"
	"github.com/allisson/payments/internal/payment/http/dto"
	"github.com/allisson/payments/internal/payment/usecase"
)

// Idempotency headers recognized by the payment endpoint.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderClientID       = "Client-Id"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	paymentUseCase  usecase.UseCase
	defaultClientID string
	logger          *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentUseCase usecase.UseCase, defaultClientID string, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUseCase:  paymentUseCase,
		defaultClientID: defaultClientID,
		logger:          logger,
	}
}

// ProcessHandler admits a payment request through the idempotency gate.
// POST /v1/payments - Requires an Idempotency-Key header holding a UUID.
// The response HTTP status always equals the embedded code, including on
// replayed duplicates.
func (h *PaymentHandler) ProcessHandler(c *gin.Context) {
	idempotencyKey := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))

	// A missing or malformed token is rejected before anything touches the
	// store; there is no key to dedupe on
	if _, err := uuid.Parse(idempotencyKey); err != nil {
		if h.logger != nil {
			h.logger.Warn("rejected payment request with invalid idempotency key")
		}
		c.JSON(http.StatusBadRequest, dto.PaymentResponse{
			Status:  "INVALID_TOKEN",
			Code:    http.StatusBadRequest,
			Message: "Idempotency-Key header must be a valid UUID",
		})
		return
	}

	clientID := strings.TrimSpace(c.GetHeader(HeaderClientID))
	if clientID == "" {
		clientID = h.defaultClientID
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	input := dto.ToProcessPaymentInput(req, clientID, idempotencyKey)

	result, err := h.paymentUseCase.ProcessPayment(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(result.Code, dto.MapResultToResponse(result))
}

// GetHandler retrieves a transaction by ID.
// GET /v1/payments/:id - Returns 200 OK with the ledger snapshot.
func (h *PaymentHandler) GetHandler(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid transaction ID format: must be a valid UUID"),
			h.logger)
		return
	}

	transaction, err := h.paymentUseCase.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransactionToResponse(transaction))
}
