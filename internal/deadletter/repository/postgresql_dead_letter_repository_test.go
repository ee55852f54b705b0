package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/payments/internal/deadletter/domain"
	"github.com/allisson/payments/internal/testutil"
)

// createTestDeadLetter inserts a dead letter and returns it.
func createTestDeadLetter(t *testing.T, db *sql.DB, repo *PostgreSQLDeadLetterRepository) *domain.DeadLetter {
	t.Helper()

	deadLetter := &domain.DeadLetter{
		ID:            uuid.Must(uuid.NewV7()),
		SourceEventID: uuid.Must(uuid.NewV7()),
		AggregateType: "PaymentTransaction",
		AggregateID:   uuid.Must(uuid.NewV7()),
		EventType:     "PAYMENT_CREATED",
		Payload:       `{"transaction_id":"t-1","amount":"100.50"}`,
		ErrorMessage:  "payment gateway declined the request",
		Attempts:      3,
		LastAttemptAt: time.Now().UTC(),
	}
	err := repo.Create(context.Background(), deadLetter)
	require.NoError(t, err)
	return deadLetter
}

func TestPostgreSQLDeadLetterRepository_Create(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDeadLetterRepository(db)
	ctx := context.Background()

	deadLetter := createTestDeadLetter(t, db, repo)

	read, err := repo.GetByID(ctx, deadLetter.ID)
	require.NoError(t, err)
	assert.Equal(t, deadLetter.ID, read.ID)
	assert.Equal(t, deadLetter.SourceEventID, read.SourceEventID)
	assert.Equal(t, deadLetter.AggregateID, read.AggregateID)
	assert.Equal(t, deadLetter.Payload, read.Payload)
	assert.Equal(t, deadLetter.ErrorMessage, read.ErrorMessage)
	assert.Equal(t, 3, read.Attempts)
	assert.WithinDuration(t, deadLetter.LastAttemptAt, read.LastAttemptAt, time.Second)
}

func TestPostgreSQLDeadLetterRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLDeadLetterRepository(db)
	ctx := context.Background()

	read, err := repo.GetByID(ctx, uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, domain.ErrDeadLetterNotFound)
	assert.Nil(t, read)
}

func TestPostgreSQLDeadLetterRepository_List(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDeadLetterRepository(db)
	ctx := context.Background()

	first := createTestDeadLetter(t, db, repo)
	time.Sleep(time.Millisecond)
	second := createTestDeadLetter(t, db, repo)
	time.Sleep(time.Millisecond)
	third := createTestDeadLetter(t, db, repo)

	// Newest first
	deadLetters, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, deadLetters, 3)
	assert.Equal(t, third.ID, deadLetters[0].ID)
	assert.Equal(t, second.ID, deadLetters[1].ID)
	assert.Equal(t, first.ID, deadLetters[2].ID)

	// Pagination
	deadLetters, err = repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, deadLetters, 1)
	assert.Equal(t, second.ID, deadLetters[0].ID)
}

func TestPostgreSQLDeadLetterRepository_List_Empty(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLDeadLetterRepository(db)
	ctx := context.Background()

	deadLetters, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, deadLetters)
}

func TestPostgreSQLDeadLetterRepository_Delete(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDeadLetterRepository(db)
	ctx := context.Background()

	deadLetter := createTestDeadLetter(t, db, repo)

	err := repo.Delete(ctx, deadLetter.ID)
	require.NoError(t, err)

	read, err := repo.GetByID(ctx, deadLetter.ID)
	require.ErrorIs(t, err, domain.ErrDeadLetterNotFound)
	assert.Nil(t, read)
}

func TestPostgreSQLDeadLetterRepository_Delete_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLDeadLetterRepository(db)
	ctx := context.Background()

	err := repo.Delete(ctx, uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, domain.ErrDeadLetterNotFound)
}
