package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/payments/internal/gateway"
	"github.com/allisson/payments/internal/outbox/domain"

	deadletterDomain "github.com/allisson/payments/internal/deadletter/domain"
	paymentDomain "github.com/allisson/payments/internal/payment/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// passthroughTxManager runs the function without a real transaction
type passthroughTxManager struct{}

func (p *passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeStore is an in-memory stand-in for the outbox, transaction, idempotency
// and dead letter repositories, tracking state across dispatch cycles
type fakeStore struct {
	mu          sync.Mutex
	event       *domain.OutboxEvent
	transaction *paymentDomain.Transaction
	record      *paymentDomain.IdempotencyRecord
	deadLetters []*deadletterDomain.DeadLetter
}

func newFakeStore() *fakeStore {
	transactionID := uuid.Must(uuid.NewV7())
	return &fakeStore{
		event: &domain.OutboxEvent{
			ID:            uuid.Must(uuid.NewV7()),
			AggregateType: domain.AggregateTypePaymentTransaction,
			AggregateID:   transactionID,
			EventType:     domain.EventTypePaymentCreated,
			Payload:       `{"amount":"150.75","currency":"INR"}`,
			CreatedAt:     time.Now(),
		},
		transaction: &paymentDomain.Transaction{
			ID:       transactionID,
			ClientID: "demo-client",
			Amount:   "150.75",
			Currency: "INR",
			Status:   paymentDomain.TransactionStatusPending,
		},
		record: &paymentDomain.IdempotencyRecord{
			ID:             uuid.Must(uuid.NewV7()),
			ClientID:       "demo-client",
			IdempotencyKey: uuid.Must(uuid.NewV7()),
			Status:         paymentDomain.IdempotencyStatusInProgress,
			TransactionID:  transactionID,
		},
	}
}

func (s *fakeStore) ClaimNext(ctx context.Context) (*domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil || s.event.Processed {
		return nil, domain.ErrOutboxEventNotFound
	}
	copied := *s.event
	return &copied, nil
}

func (s *fakeStore) Update(ctx context.Context, event *domain.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.event = &copied
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil || s.event.ID != id {
		return domain.ErrOutboxEventNotFound
	}
	s.event = nil
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transaction == nil || s.transaction.ID != id {
		return nil, paymentDomain.ErrTransactionNotFound
	}
	copied := *s.transaction
	return &copied, nil
}

func (s *fakeStore) UpdateTransaction(ctx context.Context, transaction *paymentDomain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *transaction
	s.transaction = &copied
	return nil
}

func (s *fakeStore) GetByTransactionID(
	ctx context.Context,
	transactionID uuid.UUID,
) (*paymentDomain.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil || s.record.TransactionID != transactionID {
		return nil, paymentDomain.ErrIdempotencyRecordNotFound
	}
	copied := *s.record
	return &copied, nil
}

func (s *fakeStore) UpdateRecord(ctx context.Context, record *paymentDomain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.record = &copied
	return nil
}

func (s *fakeStore) CreateDeadLetter(ctx context.Context, deadLetter *deadletterDomain.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *deadLetter
	s.deadLetters = append(s.deadLetters, &copied)
	return nil
}

// Adapters so one fakeStore satisfies the four repository interfaces

type fakeTransactionRepo struct{ store *fakeStore }

func (f *fakeTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Transaction, error) {
	return f.store.GetByID(ctx, id)
}

func (f *fakeTransactionRepo) Update(ctx context.Context, transaction *paymentDomain.Transaction) error {
	return f.store.UpdateTransaction(ctx, transaction)
}

type fakeIdempotencyRepo struct{ store *fakeStore }

func (f *fakeIdempotencyRepo) GetByTransactionID(
	ctx context.Context,
	transactionID uuid.UUID,
) (*paymentDomain.IdempotencyRecord, error) {
	return f.store.GetByTransactionID(ctx, transactionID)
}

func (f *fakeIdempotencyRepo) Update(ctx context.Context, record *paymentDomain.IdempotencyRecord) error {
	return f.store.UpdateRecord(ctx, record)
}

type fakeDeadLetterRepo struct{ store *fakeStore }

func (f *fakeDeadLetterRepo) Create(ctx context.Context, deadLetter *deadletterDomain.DeadLetter) error {
	return f.store.CreateDeadLetter(ctx, deadLetter)
}

// Gateway fakes

type alwaysSucceedGateway struct{}

func (g *alwaysSucceedGateway) Process(ctx context.Context, event *domain.OutboxEvent) error {
	return nil
}

type alwaysFailGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *alwaysFailGateway) Process(ctx context.Context, event *domain.OutboxEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return gateway.ErrGatewayDeclined
}

func (g *alwaysFailGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type succeedAfterGateway struct {
	failures int
	calls    int
}

func (g *succeedAfterGateway) Process(ctx context.Context, event *domain.OutboxEvent) error {
	g.calls++
	if g.calls <= g.failures {
		return gateway.ErrGatewayDeclined
	}
	return nil
}

func newDispatcher(store *fakeStore, gw gateway.Gateway) *DispatcherUseCase {
	return NewDispatcherUseCase(
		Config{Interval: 10 * time.Millisecond, MaxAttempts: 3, GatewayTimeout: time.Second},
		&passthroughTxManager{},
		store,
		&fakeTransactionRepo{store: store},
		&fakeIdempotencyRepo{store: store},
		&fakeDeadLetterRepo{store: store},
		gw,
		nil,
	)
}

func TestDispatcherUseCase_ProcessNext_NoPendingEvents(t *testing.T) {
	store := newFakeStore()
	store.event = nil
	dispatcher := newDispatcher(store, &alwaysSucceedGateway{})

	processed, err := dispatcher.ProcessNext(context.Background())

	assert.NoError(t, err)
	assert.False(t, processed)
}

func TestDispatcherUseCase_ProcessNext_Success(t *testing.T) {
	store := newFakeStore()
	dispatcher := newDispatcher(store, &alwaysSucceedGateway{})

	processed, err := dispatcher.ProcessNext(context.Background())

	require.NoError(t, err)
	assert.True(t, processed)

	assert.True(t, store.event.Processed)
	// A first-try success needed no retries
	assert.Equal(t, 0, store.event.Attempts)
	assert.NotNil(t, store.event.ProcessedAt)

	assert.Equal(t, paymentDomain.TransactionStatusSuccess, store.transaction.Status)
	assert.Equal(t, 0, store.transaction.RetryCount)
	assert.NotEmpty(t, store.transaction.GatewayReference)

	assert.Equal(t, paymentDomain.IdempotencyStatusCompleted, store.record.Status)
	require.NotNil(t, store.record.ResponseCode)
	assert.Equal(t, http.StatusOK, *store.record.ResponseCode)
	require.NotNil(t, store.record.ResponseBody)
	assert.Equal(t, SuccessResponseBody, *store.record.ResponseBody)

	assert.Empty(t, store.deadLetters)
}

func TestDispatcherUseCase_ProcessNext_FailureBelowCeiling(t *testing.T) {
	store := newFakeStore()
	dispatcher := newDispatcher(store, &alwaysFailGateway{})

	processed, err := dispatcher.ProcessNext(context.Background())

	require.NoError(t, err)
	assert.True(t, processed)

	// Event stays pending for the next cycle
	assert.False(t, store.event.Processed)
	assert.Equal(t, 1, store.event.Attempts)

	assert.Equal(t, paymentDomain.TransactionStatusPending, store.transaction.Status)
	assert.Equal(t, 1, store.transaction.RetryCount)
	assert.Equal(t, paymentDomain.IdempotencyStatusInProgress, store.record.Status)
	assert.Empty(t, store.deadLetters)
}

func TestDispatcherUseCase_ProcessNext_ExhaustionMovesToDeadLetter(t *testing.T) {
	store := newFakeStore()
	sourceEventID := store.event.ID
	payload := store.event.Payload
	gw := &alwaysFailGateway{}
	dispatcher := newDispatcher(store, gw)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		processed, err := dispatcher.ProcessNext(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
	}

	// Exactly MaxAttempts gateway invocations, then quarantine
	assert.Equal(t, 3, gw.callCount())
	assert.Nil(t, store.event)

	require.Len(t, store.deadLetters, 1)
	deadLetter := store.deadLetters[0]
	assert.Equal(t, sourceEventID, deadLetter.SourceEventID)
	assert.Equal(t, payload, deadLetter.Payload)
	assert.Equal(t, 3, deadLetter.Attempts)
	assert.Contains(t, deadLetter.ErrorMessage, "declined")

	assert.Equal(t, paymentDomain.TransactionStatusFailed, store.transaction.Status)
	assert.Equal(t, 3, store.transaction.RetryCount)

	assert.Equal(t, paymentDomain.IdempotencyStatusFailed, store.record.Status)
	require.NotNil(t, store.record.ResponseCode)
	assert.Equal(t, http.StatusInternalServerError, *store.record.ResponseCode)
	require.NotNil(t, store.record.ResponseBody)
	assert.Equal(t, FailureResponseBody, *store.record.ResponseBody)

	// Nothing left to claim
	processed, err := dispatcher.ProcessNext(ctx)
	assert.NoError(t, err)
	assert.False(t, processed)
}

func TestDispatcherUseCase_ProcessNext_SucceedsAfterRetries(t *testing.T) {
	store := newFakeStore()
	dispatcher := newDispatcher(store, &succeedAfterGateway{failures: 2})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		processed, err := dispatcher.ProcessNext(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
	}

	assert.True(t, store.event.Processed)
	// Two failed tries, then success on the third cycle
	assert.Equal(t, 2, store.event.Attempts)
	assert.Equal(t, paymentDomain.TransactionStatusSuccess, store.transaction.Status)
	assert.Equal(t, 2, store.transaction.RetryCount)
	assert.Equal(t, paymentDomain.IdempotencyStatusCompleted, store.record.Status)
	assert.Empty(t, store.deadLetters)
}

func TestDispatcherUseCase_Start_StopsOnContextCancel(t *testing.T) {
	store := newFakeStore()
	dispatcher := newDispatcher(store, &alwaysSucceedGateway{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- dispatcher.Start(ctx)
	}()

	// Let a few cycles run, then stop the loop
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.event.Processed)
}
