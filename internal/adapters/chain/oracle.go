// Package chain provides read-only access to blockchain networks for
// verifying inbound transfers. An Oracle answers one question: has a
// transfer of at least a given amount arrived at a given address?
package chain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
)

// Transfer describes a confirmed on-chain transfer found by an oracle probe
type Transfer struct {
	Hash      string
	Amount    decimal.Decimal
	BlockTime time.Time
}

// Oracle probes a blockchain for transfers to a deposit address.
//
// FindTransfer returns the first confirmed transfer to address whose amount
// is at least minAmount, in the currency's display units. A (nil, nil)
// return means the probe succeeded and no qualifying transfer exists yet.
// A non-nil error means the chain could not be consulted; callers must
// treat that as "uncertain", never as "absent".
type Oracle interface {
	FindTransfer(ctx context.Context, address string, minAmount decimal.Decimal) (*Transfer, error)
}

// Registry routes oracle probes by currency
type Registry struct {
	oracles map[entities.Currency]Oracle
}

// NewRegistry creates an oracle registry
func NewRegistry() *Registry {
	return &Registry{oracles: make(map[entities.Currency]Oracle)}
}

// Register binds an oracle to a currency
func (r *Registry) Register(currency entities.Currency, oracle Oracle) {
	r.oracles[currency] = oracle
}

// ForCurrency returns the oracle for a currency
func (r *Registry) ForCurrency(currency entities.Currency) (Oracle, error) {
	oracle, ok := r.oracles[currency]
	if !ok {
		return nil, domainerrors.ValidationError("currency", "no oracle registered for currency "+string(currency))
	}
	return oracle, nil
}
