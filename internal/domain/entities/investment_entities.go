package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionStatus represents the status of an investment position
type PositionStatus string

const (
	PositionStatusActive    PositionStatus = "active"
	PositionStatusCompleted PositionStatus = "completed"
	PositionStatusCancelled PositionStatus = "cancelled"
)

// IsTerminal returns true if the position can no longer accrue
func (s PositionStatus) IsTerminal() bool {
	return s == PositionStatusCompleted || s == PositionStatusCancelled
}

// InvestmentPlan defines a compounding product. ROI is a typed numeric
// fraction (0.10 = 10%), never parsed from display text.
type InvestmentPlan struct {
	Name         string          `json:"name" mapstructure:"name"`
	ROI          decimal.Decimal `json:"roi" mapstructure:"roi"`
	DurationDays int             `json:"duration_days" mapstructure:"duration_days"`
	MinAmountUSD decimal.Decimal `json:"min_amount_usd" mapstructure:"min_amount_usd"`
	MaxAmountUSD decimal.Decimal `json:"max_amount_usd" mapstructure:"max_amount_usd"`
}

// ValueSample is one point of a position's value history
type ValueSample struct {
	Timestamp time.Time       `json:"timestamp" db:"sampled_at"`
	ValueUSD  decimal.Decimal `json:"value_usd" db:"value_usd"`
}

// InvestmentPosition is a compounding investment derived from one
// confirmed deposit. SourceIntentID is unique: an intent can never open
// two positions.
type InvestmentPosition struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	AccountID         uuid.UUID       `json:"account_id" db:"account_id"`
	SourceIntentID    uuid.UUID       `json:"source_intent_id" db:"source_intent_id"`
	PlanName          string          `json:"plan_name" db:"plan_name"`
	Principal         decimal.Decimal `json:"principal" db:"principal"`
	PrincipalCurrency Currency        `json:"principal_currency" db:"principal_currency"`
	InitialValueUSD   decimal.Decimal `json:"initial_value_usd" db:"initial_value_usd"`
	CurrentValueUSD   decimal.Decimal `json:"current_value_usd" db:"current_value_usd"`
	TargetValueUSD    decimal.Decimal `json:"target_value_usd" db:"target_value_usd"`
	DailyGrowthRate   decimal.Decimal `json:"daily_growth_rate" db:"daily_growth_rate"`
	StartDate         time.Time       `json:"start_date" db:"start_date"`
	EndDate           time.Time       `json:"end_date" db:"end_date"`
	Status            PositionStatus  `json:"status" db:"status"`
	LastUpdated       time.Time       `json:"last_updated" db:"last_updated"`
	LastSampledAt     *time.Time      `json:"last_sampled_at,omitempty" db:"last_sampled_at"`
	History           []ValueSample   `json:"history,omitempty" db:"-"`
}

// IsActive returns true while the position still accrues
func (p *InvestmentPosition) IsActive() bool {
	return p.Status == PositionStatusActive
}

// CreateInvestmentRequest is the payload for opening a position from a
// completed intent
type CreateInvestmentRequest struct {
	IntentID uuid.UUID `json:"intent_id" binding:"required" validate:"required"`
	PlanName string    `json:"plan_name" binding:"required" validate:"required"`
}
