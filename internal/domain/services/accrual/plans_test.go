package accrual

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/config"
)

func testPlansConfig() config.PlansConfig {
	return config.PlansConfig{
		Catalog: []config.PlanConfig{
			{Name: "growth", ROIPercent: 25, DurationDays: 90, MinAmountUSD: 1000, MaxAmountUSD: 50000},
			{Name: "starter", ROIPercent: 12, DurationDays: 30, MinAmountUSD: 100, MaxAmountUSD: 5000},
		},
	}
}

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalog(testPlansConfig())

	plan, err := catalog.Lookup("starter")
	require.NoError(t, err)
	assert.Equal(t, "starter", plan.Name)
	assert.True(t, plan.ROI.Equal(decimal.NewFromFloat(0.12)),
		"ROI percent should be converted to a fraction, got %s", plan.ROI)
	assert.Equal(t, 30, plan.DurationDays)
}

func TestCatalogLookupUnknownPlan(t *testing.T) {
	catalog := NewCatalog(testPlansConfig())

	_, err := catalog.Lookup("whale")
	require.Error(t, err)
	assert.True(t, domainerrors.IsInvalidPlan(err))
	assert.Equal(t, "INVALID_PLAN", domainerrors.GetErrorCode(err))
}

func TestCatalogListSortedByMinimum(t *testing.T) {
	catalog := NewCatalog(testPlansConfig())

	plans := catalog.List()
	require.Len(t, plans, 2)
	assert.Equal(t, "starter", plans[0].Name)
	assert.Equal(t, "growth", plans[1].Name)
}

func TestConverterToUSD(t *testing.T) {
	converter, err := NewConverter(config.RatesConfig{BTCUSD: "65000", USDTUSD: "1"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		currency string
		amount   string
		want     string
	}{
		{"BTC at configured rate", "BTC", "0.5", "32500"},
		{"USDT pegged", "USDT", "250", "250"},
		{"USD identity", "USD", "99.99", "99.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			got, err := converter.ToUSD(entities.Currency(tt.currency), amount)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestConverterRejectsUnknownCurrency(t *testing.T) {
	converter, err := NewConverter(config.RatesConfig{BTCUSD: "65000", USDTUSD: "1"})
	require.NoError(t, err)

	_, err = converter.ToUSD(entities.Currency("DOGE"), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestConverterRejectsMalformedRates(t *testing.T) {
	_, err := NewConverter(config.RatesConfig{BTCUSD: "not-a-number", USDTUSD: "1"})
	assert.Error(t, err)
}
