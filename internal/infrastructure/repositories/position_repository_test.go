package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
)

func TestAppendHistoryIgnoresDuplicateSample(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPositionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`ON CONFLICT \(position_id, sampled_at\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Beginx()
	require.NoError(t, err)

	err = repo.AppendHistory(context.Background(), tx, uuid.New(), entities.ValueSample{
		Timestamp: time.Now().UTC().Truncate(24 * time.Hour),
		ValueUSD:  decimal.RequireFromString("104.50"),
	})

	require.NoError(t, err, "a sample already written by a concurrent sweep is skipped, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
