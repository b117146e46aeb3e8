package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/repositories"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	svc := NewService(repositories.NewIntentRepository(db), nil, db, logger.New("error", "test"))
	return svc, mock
}

func TestCreateIntentNormalizesNegativeAmount(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO transaction_intents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	intent, err := svc.CreateIntent(context.Background(), uuid.New(), &entities.CreateIntentRequest{
		Address:  "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		Currency: entities.CurrencyBTC,
		Amount:   decimal.RequireFromString("-0.02"),
	})

	require.NoError(t, err)
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("0.02")),
		"amount is stored as a positive magnitude, got %s", intent.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIntentRejectsZeroAmount(t *testing.T) {
	svc, mock := newTestService(t)

	_, err := svc.CreateIntent(context.Background(), uuid.New(), &entities.CreateIntentRequest{
		Address:  "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		Currency: entities.CurrencyBTC,
		Amount:   decimal.Zero,
	})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "a zero amount never reaches the database")
}

func TestReapReportsFailedCount(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE transaction_intents").
		WillReturnResult(sqlmock.NewResult(0, 3))

	cutoff := time.Now().UTC().Add(-30 * time.Minute)
	report, err := svc.Reap(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, 3, report.FailedCount)
	assert.Equal(t, cutoff, report.Cutoff)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailTransitionsPendingIntent(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE transaction_intents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := svc.Fail(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailIsNoopOnTerminalIntent(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE transaction_intents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM transaction_intents").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(entities.IntentStatusCompleted)))

	changed, err := svc.Fail(context.Background(), uuid.New())

	require.NoError(t, err, "failing a completed intent is a no-op, not a conflict")
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
