package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency identifies a supported deposit currency
type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyUSDT Currency = "USDT"
	CurrencyUSD  Currency = "USD"
)

// IsValid reports whether the currency can be deposited on-chain
func (c Currency) IsValid() bool {
	return c == CurrencyBTC || c == CurrencyUSDT
}

// TransactionIntent is a tracked request to observe an inbound payment.
// Rows are append-only: status, hash and observed amount are the only
// mutable fields and only move pending -> completed|failed.
type TransactionIntent struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	UserID         uuid.UUID        `json:"user_id" db:"user_id"`
	Address        string           `json:"address" db:"address"`
	Currency       Currency         `json:"currency" db:"currency"`
	Amount         decimal.Decimal  `json:"amount" db:"amount"`
	ObservedAmount *decimal.Decimal `json:"observed_amount,omitempty" db:"observed_amount"`
	Status         IntentStatus     `json:"status" db:"status"`
	TxHash         *string          `json:"tx_hash,omitempty" db:"tx_hash"`
	InitiatedAt    time.Time        `json:"initiated_at" db:"initiated_at"`
	ConfirmedAt    *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// CreateIntentRequest is the payload for creating a transaction intent
type CreateIntentRequest struct {
	Address  string          `json:"address" binding:"required" validate:"required"`
	Currency Currency        `json:"currency" binding:"required,deposit_currency" validate:"required,oneof=BTC USDT"`
	Amount   decimal.Decimal `json:"amount" binding:"required" validate:"required"`
}

// CreateIntentResponse returns the created intent
type CreateIntentResponse struct {
	IntentID uuid.UUID    `json:"intent_id"`
	Status   IntentStatus `json:"status"`
}

// VerifyIntentResponse reports the current verification state of an intent
type VerifyIntentResponse struct {
	IntentID uuid.UUID    `json:"intent_id"`
	Status   IntentStatus `json:"status"`
	TxHash   *string      `json:"tx_hash,omitempty"`
}

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
