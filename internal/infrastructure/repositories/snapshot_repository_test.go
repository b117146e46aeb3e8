package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRecentReturnsNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSnapshotRepository(db)

	accountID := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "account_id", "taken_at",
		"total_value_usd", "chain_value_usd", "cash_value_usd", "investments_value_usd",
	}).
		AddRow(uuid.New(), accountID, now, "300.00", "100.00", "100.00", "100.00").
		AddRow(uuid.New(), accountID, now.Add(-time.Hour), "290.00", "95.00", "100.00", "95.00")

	mock.ExpectQuery(`ORDER BY taken_at DESC`).
		WithArgs(accountID, sqlmock.AnyArg(), 30).
		WillReturnRows(rows)

	snapshots, err := repo.ListRecent(context.Background(), accountID, now.Add(-30*24*time.Hour), 30)

	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.True(t, snapshots[0].Timestamp.After(snapshots[1].Timestamp),
		"snapshots come back newest first")
	assert.NoError(t, mock.ExpectationsWereMet())
}
