package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
)

// SnapshotRepository persists point-in-time portfolio valuations
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Append records a portfolio snapshot
func (r *SnapshotRepository) Append(ctx context.Context, snapshot *entities.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (
			id, account_id, taken_at,
			total_value_usd, chain_value_usd, cash_value_usd, investments_value_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.AccountID,
		snapshot.Timestamp,
		snapshot.TotalValueUSD,
		snapshot.ChainValueUSD,
		snapshot.CashValueUSD,
		snapshot.InvestmentsValueUSD,
	)
	if err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}

	return nil
}

// ListRecent returns the most recent snapshots since a cutoff, newest first
func (r *SnapshotRepository) ListRecent(ctx context.Context, accountID uuid.UUID, since time.Time, limit int) ([]*entities.PortfolioSnapshot, error) {
	query := `
		SELECT id, account_id, taken_at,
		       total_value_usd, chain_value_usd, cash_value_usd, investments_value_usd
		FROM portfolio_snapshots
		WHERE account_id = $1 AND taken_at >= $2
		ORDER BY taken_at DESC
		LIMIT $3
	`

	var snapshots []*entities.PortfolioSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, accountID, since, limit); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return snapshots, nil
}
