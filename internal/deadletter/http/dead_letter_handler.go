// Package http provides HTTP handlers for dead letter operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/payments/internal/deadletter/http/dto"
	"github.com/allisson/payments/internal/deadletter/usecase"
	"github.com/allisson/payments/internal/httputil"
)

// DeadLetterHandler handles dead letter HTTP requests
type DeadLetterHandler struct {
	deadLetterUseCase usecase.UseCase
	logger            *slog.Logger
}

// NewDeadLetterHandler creates a new DeadLetterHandler
func NewDeadLetterHandler(deadLetterUseCase usecase.UseCase, logger *slog.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{
		deadLetterUseCase: deadLetterUseCase,
		logger:            logger,
	}
}

// ListHandler retrieves dead letters with pagination support.
// GET /v1/dead-letters?offset=0&limit=50 - Returns 200 OK with a paginated list.
func (h *DeadLetterHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	deadLetters, err := h.deadLetterUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeadLettersToListResponse(deadLetters))
}

// GetHandler retrieves a dead letter by ID.
// GET /v1/dead-letters/:id - Returns 200 OK with the dead letter.
func (h *DeadLetterHandler) GetHandler(c *gin.Context) {
	deadLetterID, err := h.parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	deadLetter, err := h.deadLetterUseCase.Get(c.Request.Context(), deadLetterID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeadLetterToResponse(deadLetter))
}

// RequeueHandler moves a dead letter back to the outbox for another dispatch
// round.
// POST /v1/dead-letters/:id/requeue - Returns 202 Accepted with the new
// outbox event ID.
func (h *DeadLetterHandler) RequeueHandler(c *gin.Context) {
	deadLetterID, err := h.parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	newEventID, err := h.deadLetterUseCase.Requeue(c.Request.Context(), deadLetterID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.RequeueResponse{OutboxEventID: newEventID})
}

// DeleteHandler discards a dead letter permanently.
// DELETE /v1/dead-letters/:id - Returns 204 No Content.
func (h *DeadLetterHandler) DeleteHandler(c *gin.Context) {
	deadLetterID, err := h.parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.deadLetterUseCase.Delete(c.Request.Context(), deadLetterID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

func (h *DeadLetterHandler) parseID(c *gin.Context) (uuid.UUID, error) {
	deadLetterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid dead letter ID format: must be a valid UUID")
	}
	return deadLetterID, nil
}
