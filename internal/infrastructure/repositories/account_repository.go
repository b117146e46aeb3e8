package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
)

// AccountRepository persists accounts and their currency balances
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const getOrCreateAccountQuery = `
	INSERT INTO accounts (id, user_id, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	RETURNING id, user_id, created_at, updated_at
`

// GetOrCreateByUserID returns the account for a user, creating it on first use
func (r *AccountRepository) GetOrCreateByUserID(ctx context.Context, userID uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	now := time.Now().UTC()
	err := r.db.GetContext(ctx, &account, getOrCreateAccountQuery, uuid.New(), userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create account: %w", err)
	}

	return &account, nil
}

// GetByID returns an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	query := `SELECT id, user_id, created_at, updated_at FROM accounts WHERE id = $1`
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("account")
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetOrCreateByUserIDTx is GetOrCreateByUserID inside an existing transaction
func (r *AccountRepository) GetOrCreateByUserIDTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	now := time.Now().UTC()
	err := tx.GetContext(ctx, &account, getOrCreateAccountQuery, uuid.New(), userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create account: %w", err)
	}

	return &account, nil
}

// CreditBalance adds delta to a currency balance inside a transaction,
// creating the balance row on first credit
func (r *AccountRepository) CreditBalance(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, currency entities.Currency, delta decimal.Decimal) error {
	query := `
		INSERT INTO balances (account_id, currency, amount, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, currency)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := tx.ExecContext(ctx, query, accountID, currency, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	return nil
}

// DebitBalance subtracts delta from a currency balance inside a transaction.
// The balance check constraint rejects overdrafts at the database level.
func (r *AccountRepository) DebitBalance(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, currency entities.Currency, delta decimal.Decimal) error {
	query := `
		UPDATE balances
		SET amount = amount - $3,
		    updated_at = $4
		WHERE account_id = $1 AND currency = $2 AND amount >= $3
	`

	result, err := tx.ExecContext(ctx, query, accountID, currency, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("insufficient %s balance", currency)
	}

	return nil
}

// GetBalances returns all currency balances for an account
func (r *AccountRepository) GetBalances(ctx context.Context, accountID uuid.UUID) ([]*entities.Balance, error) {
	query := `
		SELECT account_id, currency, amount, updated_at
		FROM balances
		WHERE account_id = $1
		ORDER BY currency
	`

	var balances []*entities.Balance
	if err := r.db.SelectContext(ctx, &balances, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	return balances, nil
}
