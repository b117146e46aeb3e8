package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the aggregate root owning balances, positions and the
// snapshot history for one user. Created lazily on the first
// balance-affecting event.
type Account struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Balance is one per-currency balance row of an account
type Balance struct {
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	Currency  Currency        `json:"currency" db:"currency"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// PortfolioSnapshot is a timestamped total-value sample appended on every
// balance-affecting event. The sequence per account is append-only.
type PortfolioSnapshot struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	AccountID           uuid.UUID       `json:"account_id" db:"account_id"`
	Timestamp           time.Time       `json:"timestamp" db:"taken_at"`
	TotalValueUSD       decimal.Decimal `json:"total_value_usd" db:"total_value_usd"`
	ChainValueUSD       decimal.Decimal `json:"chain_value_usd" db:"chain_value_usd"`
	CashValueUSD        decimal.Decimal `json:"cash_value_usd" db:"cash_value_usd"`
	InvestmentsValueUSD decimal.Decimal `json:"investments_value_usd" db:"investments_value_usd"`
}

// PortfolioSummary is the read model returned to the presentation layer
type PortfolioSummary struct {
	UserID             uuid.UUID                   `json:"user_id"`
	TotalValueUSD      decimal.Decimal             `json:"total_value_usd"`
	Balances           map[Currency]decimal.Decimal `json:"balances"`
	ActivePositions    []*InvestmentPosition       `json:"active_positions"`
	CompletedPositions []*InvestmentPosition       `json:"completed_positions"`
	Snapshots          []*PortfolioSnapshot        `json:"snapshots"`
	GeneratedAt        time.Time                   `json:"generated_at"`
}

// SweepReport summarizes one accrual sweep across all accounts. Each
// account's outcome is independent; one failure never aborts the batch.
type SweepReport struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// ReapReport summarizes one stale-intent reap pass
type ReapReport struct {
	FailedCount int       `json:"failed_count"`
	Cutoff      time.Time `json:"cutoff"`
}
