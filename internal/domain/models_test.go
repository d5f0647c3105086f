package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPortfolioConfig_NormalizesSymbolsAndWeights(t *testing.T) {
	cfg, err := NewPortfolioConfig(ConfigInput{
		Assets: []AssetInput{
			{Symbol: "  0050.tw ", WeightPct: 40},
			{Symbol: "voo", WeightPct: 30},
		},
		InitialCapital: 1_000_000,
	})
	require.NoError(t, err)

	assert.Equal(t, "0050.TW", cfg.Assets[0].Symbol)
	assert.Equal(t, "VOO", cfg.Assets[1].Symbol)
	assert.InDelta(t, 0.40, cfg.Assets[0].TargetWeight, 1e-12)
	assert.InDelta(t, 0.30, cfg.Assets[1].TargetWeight, 1e-12)
	assert.InDelta(t, 0.30, cfg.CashWeight, 1e-12)
}

func TestNewPortfolioConfig_WeightInvariant(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
	}{
		{"two assets with cash sleeve", []float64{40, 30}},
		{"fully invested", []float64{60, 40}},
		{"single asset", []float64{100}},
		{"awkward fractions", []float64{33.3, 33.3, 33.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets := make([]AssetInput, len(tt.weights))
			for i, w := range tt.weights {
				assets[i] = AssetInput{Symbol: string(rune('A' + i)), WeightPct: w}
			}
			cfg, err := NewPortfolioConfig(ConfigInput{Assets: assets, InitialCapital: 100})
			require.NoError(t, err)
			assert.True(t, cfg.CheckWeightInvariant())
		})
	}
}

func TestNewPortfolioConfig_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   ConfigInput
		wantErr error
	}{
		{
			name: "weights over budget",
			input: ConfigInput{Assets: []AssetInput{
				{Symbol: "A", WeightPct: 70},
				{Symbol: "B", WeightPct: 50},
			}},
			wantErr: ErrWeightsExceedBudget,
		},
		{
			name:    "no assets and partial cash",
			input:   ConfigInput{},
			wantErr: ErrNoAssets,
		},
		{
			name: "negative weight",
			input: ConfigInput{Assets: []AssetInput{
				{Symbol: "A", WeightPct: -5},
			}},
			wantErr: ErrWeightOutOfRange,
		},
		{
			name: "weight above 100",
			input: ConfigInput{Assets: []AssetInput{
				{Symbol: "A", WeightPct: 101},
			}},
			wantErr: ErrWeightOutOfRange,
		},
		{
			name: "blank symbol",
			input: ConfigInput{Assets: []AssetInput{
				{Symbol: "   ", WeightPct: 50},
			}},
			wantErr: ErrEmptySymbol,
		},
		{
			name: "negative capital",
			input: ConfigInput{
				Assets:         []AssetInput{{Symbol: "A", WeightPct: 50}},
				InitialCapital: -1,
			},
			wantErr: ErrNegativeCapital,
		},
		{
			name: "amortized loan without term",
			input: ConfigInput{
				Assets:            []AssetInput{{Symbol: "A", WeightPct: 50}},
				LoanAmount:        100_000,
				LoanRepaymentMode: LoanAmortized,
			},
			wantErr: ErrInvalidLoanTerm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPortfolioConfig(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewPortfolioConfig_Defaults(t *testing.T) {
	cfg, err := NewPortfolioConfig(ConfigInput{
		Assets: []AssetInput{{Symbol: "A", WeightPct: 50}},
	})
	require.NoError(t, err)

	assert.Equal(t, RebalanceNone, cfg.RebalanceFrequency)
	assert.Equal(t, LoanInterestOnly, cfg.LoanRepaymentMode)
	assert.Equal(t, FundingExternal, cfg.RepaymentFunding)
}

func TestPriceTable_DailyReturns(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	table := PriceTable{
		Symbols: []string{"A", "B"},
		Rows: []PriceRow{
			{Date: day(1), Prices: map[string]float64{"A": 100, "B": 50}},
			{Date: day(2), Prices: map[string]float64{"A": 110, "B": 50}},
			{Date: day(3), Prices: map[string]float64{"A": 110, "B": 25}},
		},
	}

	returns := table.DailyReturns()
	require.Len(t, returns["A"], 2)
	assert.InDelta(t, 0.10, returns["A"][0], 1e-12)
	assert.InDelta(t, 0.0, returns["A"][1], 1e-12)
	assert.InDelta(t, -0.5, returns["B"][1], 1e-12)
}

func TestPriceTable_FirstValidPrice(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	table := PriceTable{
		Symbols: []string{"A"},
		Rows: []PriceRow{
			{Date: day(1), Prices: map[string]float64{"A": 0}},
			{Date: day(2), Prices: map[string]float64{"A": 42}},
		},
	}

	price, ok := table.FirstValidPrice("A")
	require.True(t, ok)
	assert.Equal(t, 42.0, price)

	_, ok = table.FirstValidPrice("MISSING")
	assert.False(t, ok)
	assert.False(t, table.HasSymbol("MISSING"))
	assert.True(t, table.HasSymbol("A"))
}
