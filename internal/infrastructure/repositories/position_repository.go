package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
)

// PositionRepository persists investment positions and their value history
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position. The unique index on source_intent_id makes
// a second position for the same intent fail with a conflict, which callers
// resolve by returning the existing position.
func (r *PositionRepository) Create(ctx context.Context, tx *sqlx.Tx, position *entities.InvestmentPosition) error {
	query := `
		INSERT INTO investment_positions (
			id, account_id, source_intent_id, plan_name,
			principal, principal_currency,
			initial_value_usd, current_value_usd, target_value_usd,
			daily_growth_rate, start_date, end_date, status, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.ExecContext(ctx, query,
		position.ID,
		position.AccountID,
		position.SourceIntentID,
		position.PlanName,
		position.Principal,
		position.PrincipalCurrency,
		position.InitialValueUSD,
		position.CurrentValueUSD,
		position.TargetValueUSD,
		position.DailyGrowthRate,
		position.StartDate,
		position.EndDate,
		position.Status,
		position.LastUpdated,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return domainerrors.ErrConflict
		}
		return fmt.Errorf("failed to create position: %w", err)
	}

	return nil
}

// GetByID retrieves a position by ID
func (r *PositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.InvestmentPosition, error) {
	query := `
		SELECT id, account_id, source_intent_id, plan_name,
		       principal, principal_currency,
		       initial_value_usd, current_value_usd, target_value_usd,
		       daily_growth_rate, start_date, end_date, status,
		       last_updated, last_sampled_at
		FROM investment_positions
		WHERE id = $1
	`

	var position entities.InvestmentPosition
	err := r.db.GetContext(ctx, &position, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("position")
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	return &position, nil
}

// GetBySourceIntentID retrieves the position funded by a given intent
func (r *PositionRepository) GetBySourceIntentID(ctx context.Context, intentID uuid.UUID) (*entities.InvestmentPosition, error) {
	query := `
		SELECT id, account_id, source_intent_id, plan_name,
		       principal, principal_currency,
		       initial_value_usd, current_value_usd, target_value_usd,
		       daily_growth_rate, start_date, end_date, status,
		       last_updated, last_sampled_at
		FROM investment_positions
		WHERE source_intent_id = $1
	`

	var position entities.InvestmentPosition
	err := r.db.GetContext(ctx, &position, query, intentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("position")
		}
		return nil, fmt.Errorf("failed to get position by intent: %w", err)
	}

	return &position, nil
}

// ListByAccount returns all positions for an account, newest first
func (r *PositionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.InvestmentPosition, error) {
	query := `
		SELECT id, account_id, source_intent_id, plan_name,
		       principal, principal_currency,
		       initial_value_usd, current_value_usd, target_value_usd,
		       daily_growth_rate, start_date, end_date, status,
		       last_updated, last_sampled_at
		FROM investment_positions
		WHERE account_id = $1
		ORDER BY start_date DESC
	`

	var positions []*entities.InvestmentPosition
	if err := r.db.SelectContext(ctx, &positions, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	return positions, nil
}

// ListActiveByAccount returns the account's positions still accruing
func (r *PositionRepository) ListActiveByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.InvestmentPosition, error) {
	query := `
		SELECT id, account_id, source_intent_id, plan_name,
		       principal, principal_currency,
		       initial_value_usd, current_value_usd, target_value_usd,
		       daily_growth_rate, start_date, end_date, status,
		       last_updated, last_sampled_at
		FROM investment_positions
		WHERE account_id = $1 AND status = $2
		ORDER BY start_date ASC
	`

	var positions []*entities.InvestmentPosition
	if err := r.db.SelectContext(ctx, &positions, query, accountID, entities.PositionStatusActive); err != nil {
		return nil, fmt.Errorf("failed to list active positions: %w", err)
	}

	return positions, nil
}

// ListAccountIDsWithActive returns accounts holding at least one active
// position, for sweep scheduling
func (r *PositionRepository) ListAccountIDsWithActive(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT account_id
		FROM investment_positions
		WHERE status = $1
	`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, entities.PositionStatusActive); err != nil {
		return nil, fmt.Errorf("failed to list accounts with active positions: %w", err)
	}

	return ids, nil
}

// UpdateProgress persists an advanced position's value, status and sampling
// bookkeeping inside a transaction
func (r *PositionRepository) UpdateProgress(ctx context.Context, tx *sqlx.Tx, position *entities.InvestmentPosition) error {
	query := `
		UPDATE investment_positions
		SET current_value_usd = $2,
		    status = $3,
		    last_updated = $4,
		    last_sampled_at = $5
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query,
		position.ID,
		position.CurrentValueUSD,
		position.Status,
		position.LastUpdated,
		position.LastSampledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update position progress: %w", err)
	}

	return nil
}

// AppendHistory records a daily value sample for a position. Samples are
// unique per (position, instant): a concurrent sweep backfilling the same
// day boundary inserts nothing instead of duplicating the row.
func (r *PositionRepository) AppendHistory(ctx context.Context, tx *sqlx.Tx, positionID uuid.UUID, sample entities.ValueSample) error {
	query := `
		INSERT INTO position_history (position_id, sampled_at, value_usd)
		VALUES ($1, $2, $3)
		ON CONFLICT (position_id, sampled_at) DO NOTHING
	`

	_, err := tx.ExecContext(ctx, query, positionID, sample.Timestamp, sample.ValueUSD)
	if err != nil {
		return fmt.Errorf("failed to append position history: %w", err)
	}

	return nil
}

// ListHistory returns a position's value samples, oldest first
func (r *PositionRepository) ListHistory(ctx context.Context, positionID uuid.UUID, limit int) ([]entities.ValueSample, error) {
	query := `
		SELECT sampled_at, value_usd
		FROM position_history
		WHERE position_id = $1
		ORDER BY sampled_at ASC
		LIMIT $2
	`

	var samples []entities.ValueSample
	if err := r.db.SelectContext(ctx, &samples, query, positionID, limit); err != nil {
		return nil, fmt.Errorf("failed to list position history: %w", err)
	}

	return samples, nil
}
