package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		JWT:      JWTConfig{Secret: "test-secret"},
		Database: DatabaseConfig{Host: "localhost", Name: "chainvest_test"},
		Verification: VerificationConfig{
			PollIntervalSeconds: 30,
			DeadlineMinutes:     30,
			ReapIntervalMinutes: 5,
		},
		Rates: RatesConfig{BTCUSD: "65000", USDTUSD: "1"},
		Plans: PlansConfig{Catalog: []PlanConfig{
			{Name: "starter", ROIPercent: 12, DurationDays: 30, MinAmountUSD: 100, MaxAmountUSD: 5000},
		}},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validate(validConfig()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing JWT secret",
			mutate: func(c *Config) { c.JWT.Secret = "" },
			errMsg: "JWT secret",
		},
		{
			name: "incomplete database config",
			mutate: func(c *Config) {
				c.Database.URL = ""
				c.Database.Host = ""
			},
			errMsg: "database configuration",
		},
		{
			name:   "non-positive poll interval",
			mutate: func(c *Config) { c.Verification.PollIntervalSeconds = 0 },
			errMsg: "poll interval",
		},
		{
			name:   "non-positive deadline",
			mutate: func(c *Config) { c.Verification.DeadlineMinutes = -1 },
			errMsg: "deadline",
		},
		{
			name:   "malformed BTC rate",
			mutate: func(c *Config) { c.Rates.BTCUSD = "sixty-five-thousand" },
			errMsg: "BTC/USD",
		},
		{
			name:   "empty plan catalog",
			mutate: func(c *Config) { c.Plans.Catalog = nil },
			errMsg: "plan catalog",
		},
		{
			name:   "plan without name",
			mutate: func(c *Config) { c.Plans.Catalog[0].Name = "" },
			errMsg: "missing name",
		},
		{
			name:   "plan with zero duration",
			mutate: func(c *Config) { c.Plans.Catalog[0].DurationDays = 0 },
			errMsg: "non-positive duration",
		},
		{
			name:   "plan with negative ROI",
			mutate: func(c *Config) { c.Plans.Catalog[0].ROIPercent = -5 },
			errMsg: "negative ROI",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateAllowsDatabaseURLOnly(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{URL: "postgres://localhost/chainvest_test"}
	assert.NoError(t, validate(cfg))
}

func TestRateParsers(t *testing.T) {
	rates := RatesConfig{BTCUSD: "65000.50", USDTUSD: "0.999"}

	btc, err := rates.BTCUSDRate()
	require.NoError(t, err)
	assert.Equal(t, "65000.5", btc.String())

	usdt, err := rates.USDTUSDRate()
	require.NoError(t, err)
	assert.Equal(t, "0.999", usdt.String())
}
