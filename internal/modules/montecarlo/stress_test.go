package montecarlo

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycliang/growthsim/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestBlendedReturns_EqualWeighting(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	table := &domain.PriceTable{
		Symbols: []string{"A", "B"},
		Rows: []domain.PriceRow{
			{Date: day(1), Prices: map[string]float64{"A": 100, "B": 200}},
			{Date: day(2), Prices: map[string]float64{"A": 110, "B": 190}},
		},
	}

	returns, err := BlendedReturns(table, []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, returns, 1)

	// Equal-weighted mean of +10% and -5%, regardless of target weights.
	assert.InDelta(t, (0.10-0.05)/2, returns[0], 1e-12)
}

func TestBlendedReturns_SkipsDaysWithoutObservations(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	table := &domain.PriceTable{
		Symbols: []string{"A"},
		Rows: []domain.PriceRow{
			{Date: day(1), Prices: map[string]float64{}},
			{Date: day(2), Prices: map[string]float64{"A": 100}},
			{Date: day(3), Prices: map[string]float64{"A": 105}},
		},
	}

	returns, err := BlendedReturns(table, []string{"A"})
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assert.InDelta(t, 0.05, returns[0], 1e-12)
}

func TestBlendedReturns_TooShort(t *testing.T) {
	_, err := BlendedReturns(&domain.PriceTable{}, []string{"A"})
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestRun_ConstantZeroReturnsAlwaysSurvives(t *testing.T) {
	// Flat returns, no flows, no leverage: NAV never decreases, so
	// every one of the 1000 trials must survive.
	returns := make([]float64, 500)

	tester := NewTester(4, testLogger())
	result, err := tester.Run(context.Background(), returns, StressParams{
		SimYears:       5,
		Trials:         1000,
		InitialCapital: 1_000_000,
		Seed:           1,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.SuccessRate)
	assert.Equal(t, 1000, result.Successes)
	assert.InDelta(t, 1_000_000, result.TerminalP50, 1e-6)
}

func TestRun_TotalLossDayRuinsEveryTrial(t *testing.T) {
	// Every draw is -100%: each trial is ruined on its first step, the
	// path truncates to zero there, and the trial counts as a failure.
	returns := []float64{-1.0}

	tester := NewTester(2, testLogger())
	result, err := tester.Run(context.Background(), returns, StressParams{
		SimYears:       1,
		Trials:         100,
		InitialCapital: 1_000_000,
		Seed:           1,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.SuccessRate)
	for _, path := range result.Paths {
		require.Len(t, path, 2) // initial NAV then the truncation zero
		assert.Equal(t, 0.0, path[1])
	}
}

func TestRun_RecordsAtMostFiftyPaths(t *testing.T) {
	tester := NewTester(4, testLogger())
	result, err := tester.Run(context.Background(), []float64{0.001}, StressParams{
		SimYears:       1,
		Trials:         200,
		InitialCapital: 1000,
		Seed:           7,
	}, nil)
	require.NoError(t, err)

	assert.Len(t, result.Paths, 50)
	for _, path := range result.Paths {
		assert.Len(t, path, 1*TradingDaysPerYear+1)
	}
}

func TestRun_DeterministicUnderSeed(t *testing.T) {
	returns := []float64{-0.02, 0.01, 0.015, -0.005, 0.02}
	params := StressParams{
		SimYears:        3,
		Trials:          250,
		InitialCapital:  500_000,
		MonthlyCashFlow: -2000,
		Seed:            42,
	}

	tester := NewTester(8, testLogger())
	first, err := tester.Run(context.Background(), returns, params, nil)
	require.NoError(t, err)
	second, err := tester.Run(context.Background(), returns, params, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Successes, second.Successes)
	assert.Equal(t, first.TerminalP50, second.TerminalP50)
}

func TestRun_LeverageDragReducesSurvival(t *testing.T) {
	returns := []float64{0.0001, -0.0001}
	base := StressParams{
		SimYears:       10,
		Trials:         200,
		InitialCapital: 50_000,
		Seed:           3,
	}

	tester := NewTester(4, testLogger())
	unlevered, err := tester.Run(context.Background(), returns, base, nil)
	require.NoError(t, err)

	levered := base
	levered.Leveraged = true
	levered.LoanAmount = 1_000_000
	levered.LoanAnnualRate = 0.05
	drained, err := tester.Run(context.Background(), returns, levered, nil)
	require.NoError(t, err)

	// ~4.2k/month interest drag on 50k with flat returns is certain ruin.
	assert.Equal(t, 1.0, unlevered.SuccessRate)
	assert.Equal(t, 0.0, drained.SuccessRate)
}

func TestRun_ProgressReachesTotal(t *testing.T) {
	var calls int
	var last int

	tester := NewTester(4, testLogger())
	_, err := tester.Run(context.Background(), []float64{0}, StressParams{
		SimYears:       1,
		Trials:         50,
		InitialCapital: 100,
		Seed:           1,
	}, func(completed, total int) {
		calls++
		assert.Greater(t, completed, last)
		assert.Equal(t, 50, total)
		last = completed
	})
	require.NoError(t, err)

	assert.Equal(t, 50, calls)
	assert.Equal(t, 50, last)
}

func TestRun_InvalidParams(t *testing.T) {
	tester := NewTester(1, testLogger())

	_, err := tester.Run(context.Background(), []float64{0}, StressParams{SimYears: 1}, nil)
	assert.Error(t, err)

	_, err = tester.Run(context.Background(), []float64{0}, StressParams{Trials: 10}, nil)
	assert.Error(t, err)

	_, err = tester.Run(context.Background(), nil, StressParams{SimYears: 1, Trials: 10}, nil)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tester := NewTester(2, testLogger())
	_, err := tester.Run(ctx, []float64{0}, StressParams{
		SimYears:       1,
		Trials:         100,
		InitialCapital: 100,
		Seed:           1,
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
