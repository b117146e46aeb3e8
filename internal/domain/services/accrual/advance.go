package accrual

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
)

// AdvanceResult is the outcome of advancing a position to a point in time
type AdvanceResult struct {
	Value      decimal.Decimal
	Status     entities.PositionStatus
	NewSamples []entities.ValueSample
	SampledAt  *time.Time
}

// Advance computes a position's value at the given instant without touching
// storage. The same function serves persisted sweeps and read-time
// valuation, so the two can never disagree.
//
// Growth compounds daily but is applied at whole-hour granularity: two
// sweeps inside the same hour yield the identical value, and a sweep that
// ran late catches up in one step. The value never exceeds the target, and
// once the end date passes the position completes at exactly the target.
// One history sample is produced per elapsed day since the last sample,
// valued at its day boundary, so late sweeps backfill missed days.
func Advance(p *entities.InvestmentPosition, now time.Time) AdvanceResult {
	result := AdvanceResult{
		Value:  p.CurrentValueUSD,
		Status: p.Status,
	}
	if p.Status != entities.PositionStatusActive {
		return result
	}

	if !now.Before(p.EndDate) {
		result.Value = p.TargetValueUSD
		result.Status = entities.PositionStatusCompleted
	} else {
		result.Value = valueAt(p, now)
	}

	result.NewSamples = missedSamples(p, now)
	if n := len(result.NewSamples); n > 0 {
		ts := result.NewSamples[n-1].Timestamp
		result.SampledAt = &ts
	}

	return result
}

// valueAt returns the position's value at an instant, quantized to whole
// elapsed hours and capped at the target
func valueAt(p *entities.InvestmentPosition, at time.Time) decimal.Decimal {
	elapsed := at.Sub(p.StartDate)
	if elapsed <= 0 {
		return p.InitialValueUSD
	}

	hours := math.Floor(elapsed.Hours())
	days := hours / 24

	daily, _ := p.DailyGrowthRate.Float64()
	factor := math.Pow(1+daily, days)

	value := p.InitialValueUSD.Mul(decimal.NewFromFloat(factor)).Round(2)
	if value.GreaterThan(p.TargetValueUSD) {
		return p.TargetValueUSD
	}
	return value
}

// missedSamples emits one sample per whole day elapsed since the last
// recorded sample, each valued at its own day boundary
func missedSamples(p *entities.InvestmentPosition, now time.Time) []entities.ValueSample {
	lastDay := 0
	if p.LastSampledAt != nil {
		lastDay = int(p.LastSampledAt.Sub(p.StartDate).Hours() / 24)
	}
	currentDay := int(now.Sub(p.StartDate).Hours() / 24)

	var samples []entities.ValueSample
	for day := lastDay + 1; day <= currentDay; day++ {
		boundary := p.StartDate.Add(time.Duration(day) * 24 * time.Hour)
		value := valueAt(p, boundary)
		if !boundary.Before(p.EndDate) {
			value = p.TargetValueUSD
		}
		samples = append(samples, entities.ValueSample{
			Timestamp: boundary,
			ValueUSD:  value,
		})
	}
	return samples
}
