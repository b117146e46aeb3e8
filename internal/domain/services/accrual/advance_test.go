package accrual

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
)

func activePosition(start time.Time, durationDays int) *entities.InvestmentPosition {
	// 12% over 30 days, the starter plan shape
	daily := dailyGrowthRate(entities.InvestmentPlan{
		ROI:          decimal.NewFromFloat(0.12),
		DurationDays: durationDays,
	})
	initial := decimal.NewFromInt(1000)
	target := initial.Mul(decimal.NewFromFloat(1.12)).Round(2)
	return &entities.InvestmentPosition{
		ID:              uuid.New(),
		InitialValueUSD: initial,
		CurrentValueUSD: initial,
		TargetValueUSD:  target,
		DailyGrowthRate: daily,
		StartDate:       start,
		EndDate:         start.Add(time.Duration(durationDays) * 24 * time.Hour),
		Status:          entities.PositionStatusActive,
	}
}

func TestAdvanceBeforeStartReturnsInitialValue(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)

	result := Advance(p, start)
	assert.True(t, result.Value.Equal(p.InitialValueUSD),
		"value at start should equal initial, got %s", result.Value)
	assert.Equal(t, entities.PositionStatusActive, result.Status)
}

func TestAdvanceIsIdempotentWithinTheSameHour(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)

	at := start.Add(49*time.Hour + 5*time.Minute)
	first := Advance(p, at)
	second := Advance(p, at.Add(40*time.Minute))

	assert.True(t, first.Value.Equal(second.Value),
		"two reads inside one hour should agree: %s vs %s", first.Value, second.Value)
}

func TestAdvanceGrowthIsMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)

	prev := p.InitialValueUSD
	for day := 1; day < 30; day++ {
		result := Advance(p, start.Add(time.Duration(day)*24*time.Hour))
		assert.True(t, result.Value.GreaterThanOrEqual(prev),
			"day %d: value %s dropped below %s", day, result.Value, prev)
		assert.True(t, result.Value.LessThanOrEqual(p.TargetValueUSD),
			"day %d: value %s exceeds target %s", day, result.Value, p.TargetValueUSD)
		prev = result.Value
	}
}

func TestAdvanceCompletesAtExactlyTargetOnEndDate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)

	result := Advance(p, p.EndDate)
	assert.True(t, result.Value.Equal(p.TargetValueUSD),
		"completion value %s should equal target %s", result.Value, p.TargetValueUSD)
	assert.Equal(t, entities.PositionStatusCompleted, result.Status)

	// Long after the end date the answer is the same
	late := Advance(p, p.EndDate.Add(90*24*time.Hour))
	assert.True(t, late.Value.Equal(p.TargetValueUSD))
	assert.Equal(t, entities.PositionStatusCompleted, late.Status)
}

func TestAdvanceLeavesTerminalPositionsUntouched(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)
	p.Status = entities.PositionStatusCompleted
	p.CurrentValueUSD = p.TargetValueUSD

	result := Advance(p, start.Add(400*24*time.Hour))
	assert.True(t, result.Value.Equal(p.TargetValueUSD))
	assert.Equal(t, entities.PositionStatusCompleted, result.Status)
	assert.Empty(t, result.NewSamples)
}

func TestAdvanceBackfillsOneSamplePerMissedDay(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)

	// No samples yet, five days elapsed
	result := Advance(p, start.Add(5*24*time.Hour+30*time.Minute))
	require.Len(t, result.NewSamples, 5)
	for i, sample := range result.NewSamples {
		expected := start.Add(time.Duration(i+1) * 24 * time.Hour)
		assert.Equal(t, expected, sample.Timestamp, "sample %d boundary", i)
	}
	require.NotNil(t, result.SampledAt)
	assert.Equal(t, result.NewSamples[4].Timestamp, *result.SampledAt)

	// Sample values grow with their day boundaries
	for i := 1; i < len(result.NewSamples); i++ {
		assert.True(t, result.NewSamples[i].ValueUSD.GreaterThanOrEqual(result.NewSamples[i-1].ValueUSD))
	}
}

func TestAdvanceEmitsNoSamplesWhenCurrentDayAlreadySampled(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)
	sampled := start.Add(3 * 24 * time.Hour)
	p.LastSampledAt = &sampled

	result := Advance(p, sampled.Add(2*time.Hour))
	assert.Empty(t, result.NewSamples)
	assert.Nil(t, result.SampledAt)
}

func TestAdvanceFinalSampleIsClampedToTarget(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition(start, 30)

	result := Advance(p, p.EndDate.Add(time.Hour))
	require.NotEmpty(t, result.NewSamples)
	last := result.NewSamples[len(result.NewSamples)-1]
	assert.True(t, last.ValueUSD.Equal(p.TargetValueUSD),
		"sample at end date should be the target, got %s", last.ValueUSD)
}

func TestDailyGrowthRateCompoundsToROI(t *testing.T) {
	plan := entities.InvestmentPlan{
		ROI:          decimal.NewFromFloat(0.25),
		DurationDays: 90,
	}
	daily := dailyGrowthRate(plan)

	// (1+daily)^90 should come back to 1.25 within float tolerance
	d, _ := daily.Float64()
	compounded := 1.0
	for i := 0; i < 90; i++ {
		compounded *= 1 + d
	}
	assert.InDelta(t, 1.25, compounded, 1e-9)
}
