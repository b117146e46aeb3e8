package accrual

import (
	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/config"
)

// Converter values crypto amounts in USD using deployment-configured rates
type Converter struct {
	rates map[entities.Currency]decimal.Decimal
}

// NewConverter builds a converter from the configured rates
func NewConverter(cfg config.RatesConfig) (*Converter, error) {
	btcUSD, err := cfg.BTCUSDRate()
	if err != nil {
		return nil, domainerrors.Wrap(err, "invalid BTC/USD rate")
	}
	usdtUSD, err := cfg.USDTUSDRate()
	if err != nil {
		return nil, domainerrors.Wrap(err, "invalid USDT/USD rate")
	}

	return &Converter{
		rates: map[entities.Currency]decimal.Decimal{
			entities.CurrencyBTC:  btcUSD,
			entities.CurrencyUSDT: usdtUSD,
			entities.CurrencyUSD:  decimal.NewFromInt(1),
		},
	}, nil
}

// ToUSD converts an amount in the given currency to USD
func (c *Converter) ToUSD(currency entities.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	rate, ok := c.rates[currency]
	if !ok {
		return decimal.Decimal{}, domainerrors.ValidationError("currency", "no USD rate for currency "+string(currency))
	}
	return amount.Mul(rate), nil
}
