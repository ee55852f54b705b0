package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/payments/internal/deadletter/domain"
)

// MockDeadLetterUseCase is a mock implementation of the dead letter use case.
type MockDeadLetterUseCase struct {
	mock.Mock
}

func (m *MockDeadLetterUseCase) List(ctx context.Context, offset, limit int) ([]*domain.DeadLetter, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DeadLetter), args.Error(1)
}

func (m *MockDeadLetterUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.DeadLetter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeadLetter), args.Error(1)
}

func (m *MockDeadLetterUseCase) Requeue(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockDeadLetterUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestRequeueDeadLetter(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("text-output", func(t *testing.T) {
		deadLetterID := uuid.Must(uuid.NewV7())
		outboxEventID := uuid.Must(uuid.NewV7())

		mockUseCase := &MockDeadLetterUseCase{}
		mockUseCase.On("Requeue", ctx, deadLetterID).Return(outboxEventID, nil)

		var out bytes.Buffer
		err := requeueDeadLetter(ctx, mockUseCase, logger, &out, deadLetterID.String(), "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), deadLetterID.String())
		require.Contains(t, out.String(), outboxEventID.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		deadLetterID := uuid.Must(uuid.NewV7())
		outboxEventID := uuid.Must(uuid.NewV7())

		mockUseCase := &MockDeadLetterUseCase{}
		mockUseCase.On("Requeue", ctx, deadLetterID).Return(outboxEventID, nil)

		var out bytes.Buffer
		err := requeueDeadLetter(ctx, mockUseCase, logger, &out, deadLetterID.String(), "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), fmt.Sprintf(`"dead_letter_id": %q`, deadLetterID.String()))
		require.Contains(t, out.String(), fmt.Sprintf(`"outbox_event_id": %q`, outboxEventID.String()))
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-id", func(t *testing.T) {
		mockUseCase := &MockDeadLetterUseCase{}

		err := requeueDeadLetter(ctx, mockUseCase, logger, &bytes.Buffer{}, "not-a-uuid", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid dead letter ID")
		mockUseCase.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything)
	})

	t.Run("requeue-error", func(t *testing.T) {
		deadLetterID := uuid.Must(uuid.NewV7())

		mockUseCase := &MockDeadLetterUseCase{}
		mockUseCase.On("Requeue", ctx, deadLetterID).Return(uuid.Nil, fmt.Errorf("dead letter not found"))

		err := requeueDeadLetter(ctx, mockUseCase, logger, &bytes.Buffer{}, deadLetterID.String(), "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to requeue dead letter")
		mockUseCase.AssertExpectations(t)
	})
}
