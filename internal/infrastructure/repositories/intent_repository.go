package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
)

const pqUniqueViolation = "23505"

// IntentRepository persists transaction intents
type IntentRepository struct {
	db *sqlx.DB
}

// NewIntentRepository creates a new intent repository
func NewIntentRepository(db *sqlx.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// Create creates a new transaction intent
func (r *IntentRepository) Create(ctx context.Context, intent *entities.TransactionIntent) error {
	query := `
		INSERT INTO transaction_intents (
			id, user_id, address, currency, amount, status, initiated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		intent.ID,
		intent.UserID,
		intent.Address,
		intent.Currency,
		intent.Amount,
		intent.Status,
		intent.InitiatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create intent: %w", err)
	}

	return nil
}

// GetByID retrieves an intent by ID
func (r *IntentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.TransactionIntent, error) {
	query := `
		SELECT id, user_id, address, currency, amount, observed_amount,
		       status, tx_hash, initiated_at, confirmed_at
		FROM transaction_intents
		WHERE id = $1
	`

	var intent entities.TransactionIntent
	err := r.db.GetContext(ctx, &intent, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("intent")
		}
		return nil, fmt.Errorf("failed to get intent: %w", err)
	}

	return &intent, nil
}

// GetByTxHash retrieves the intent that claimed an on-chain hash
func (r *IntentRepository) GetByTxHash(ctx context.Context, txHash string) (*entities.TransactionIntent, error) {
	query := `
		SELECT id, user_id, address, currency, amount, observed_amount,
		       status, tx_hash, initiated_at, confirmed_at
		FROM transaction_intents
		WHERE tx_hash = $1
	`

	var intent entities.TransactionIntent
	err := r.db.GetContext(ctx, &intent, query, txHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("intent")
		}
		return nil, fmt.Errorf("failed to get intent by hash: %w", err)
	}

	return &intent, nil
}

// MarkConfirmed atomically moves a pending intent to completed, claiming the
// on-chain hash. The partial unique index on tx_hash makes a second claim of
// the same hash fail with a unique violation, which surfaces as a duplicate
// hash conflict. Zero rows affected means the intent was not pending; the
// caller inspects the current state to report what happened.
func (r *IntentRepository) MarkConfirmed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, txHash string, observedAmount decimal.Decimal, confirmedAt time.Time) error {
	query := `
		UPDATE transaction_intents
		SET status = $2,
		    tx_hash = $3,
		    observed_amount = $4,
		    confirmed_at = $5
		WHERE id = $1 AND status = $6
	`

	result, err := tx.ExecContext(ctx, query,
		id,
		entities.IntentStatusCompleted,
		txHash,
		observedAmount,
		confirmedAt,
		entities.IntentStatusPending,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return domainerrors.DuplicateHashError(txHash)
		}
		return fmt.Errorf("failed to confirm intent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.ErrConflict
	}

	return nil
}

// MarkFailed moves a pending intent to failed and reports whether this call
// performed the transition. Failing an intent that is already terminal is a
// no-op; completed intents are never demoted.
func (r *IntentRepository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE transaction_intents
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, entities.IntentStatusFailed, entities.IntentStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark intent failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	var status entities.IntentStatus
	if err := r.db.GetContext(ctx, &status, `SELECT status FROM transaction_intents WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return false, domainerrors.NotFoundError("intent")
		}
		return false, fmt.Errorf("failed to read intent status: %w", err)
	}
	if status.IsTerminal() {
		return false, nil
	}

	return false, domainerrors.ErrConflict
}

// ListPending returns all pending intents, oldest first
func (r *IntentRepository) ListPending(ctx context.Context) ([]*entities.TransactionIntent, error) {
	query := `
		SELECT id, user_id, address, currency, amount, observed_amount,
		       status, tx_hash, initiated_at, confirmed_at
		FROM transaction_intents
		WHERE status = $1
		ORDER BY initiated_at ASC
	`

	var intents []*entities.TransactionIntent
	if err := r.db.SelectContext(ctx, &intents, query, entities.IntentStatusPending); err != nil {
		return nil, fmt.Errorf("failed to list pending intents: %w", err)
	}

	return intents, nil
}

// ListByUser returns a user's intents, newest first
func (r *IntentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.TransactionIntent, error) {
	query := `
		SELECT id, user_id, address, currency, amount, observed_amount,
		       status, tx_hash, initiated_at, confirmed_at
		FROM transaction_intents
		WHERE user_id = $1
		ORDER BY initiated_at DESC
		LIMIT $2 OFFSET $3
	`

	var intents []*entities.TransactionIntent
	if err := r.db.SelectContext(ctx, &intents, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list intents for user: %w", err)
	}

	return intents, nil
}

// ReapStale fails every pending intent initiated before the cutoff and
// returns how many were reaped
func (r *IntentRepository) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE transaction_intents
		SET status = $1
		WHERE status = $2 AND initiated_at < $3
	`

	result, err := r.db.ExecContext(ctx, query, entities.IntentStatusFailed, entities.IntentStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale intents: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows, nil
}
