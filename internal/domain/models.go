// Package domain holds the core types of the growth simulator: the
// validated scenario configuration, the aligned price table produced by
// the market data provider, and the daily record series emitted by the
// simulation engine.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RebalanceFrequency controls calendar-driven rebalancing.
type RebalanceFrequency string

const (
	RebalanceMonthly RebalanceFrequency = "monthly"
	RebalanceYearly  RebalanceFrequency = "yearly"
	RebalanceNone    RebalanceFrequency = "none"
)

// LoanRepaymentMode selects how the simulated loan is serviced.
type LoanRepaymentMode string

const (
	// LoanInterestOnly pays interest every month; the balance stays
	// constant for the whole run.
	LoanInterestOnly LoanRepaymentMode = "interest_only"

	// LoanAmortized pays a fixed annuity payment; the balance reaches
	// zero at the end of the term.
	LoanAmortized LoanRepaymentMode = "amortized"
)

// FundingSource selects where loan payments are drawn from.
type FundingSource string

const (
	// FundingExternal treats payments as fresh capital: they count
	// toward total invested and never touch simulated cash.
	FundingExternal FundingSource = "external"

	// FundingPortfolio draws payments from simulated cash; total
	// invested is unaffected.
	FundingPortfolio FundingSource = "portfolio"
)

// Asset is one portfolio sleeve with a target weight stored as a
// fraction in [0, 1].
type Asset struct {
	Symbol       string  `json:"symbol"`
	TargetWeight float64 `json:"target_weight"`
}

// PortfolioConfig is the validated, immutable description of one
// scenario. Construct it with NewPortfolioConfig; weights are fractions
// and symbols are normalized exactly once, at construction.
type PortfolioConfig struct {
	Assets               []Asset            `json:"assets"`
	CashWeight           float64            `json:"cash_weight"`
	InitialCapital       float64            `json:"initial_capital"`
	LoanAmount           float64            `json:"loan_amount"`
	LoanAnnualRate       float64            `json:"loan_annual_rate"`
	LoanRepaymentMode    LoanRepaymentMode  `json:"loan_repayment_mode"`
	LoanTermYears        int                `json:"loan_term_years"`
	RepaymentFunding     FundingSource      `json:"repayment_funding_source"`
	MonthlyCashFlow      float64            `json:"monthly_cash_flow"`
	CashAnnualRate       float64            `json:"cash_annual_rate"`
	RebalanceFrequency   RebalanceFrequency `json:"rebalance_frequency"`
	ThresholdEnabled     bool               `json:"threshold_enabled"`
	ThresholdPct         float64            `json:"threshold_pct"`
	DividendReinvestment bool               `json:"dividend_reinvestment"`
}

// AssetInput is one asset as entered by the user, weight in percent.
type AssetInput struct {
	Symbol    string  `json:"symbol"`
	WeightPct float64 `json:"weight_pct"`
}

// ConfigInput is the raw scenario as entered by the user. Weights are
// percentages; NewPortfolioConfig converts them to fractions.
type ConfigInput struct {
	Assets               []AssetInput       `json:"assets"`
	InitialCapital       float64            `json:"initial_capital"`
	LoanAmount           float64            `json:"loan_amount"`
	LoanAnnualRate       float64            `json:"loan_annual_rate"`
	LoanRepaymentMode    LoanRepaymentMode  `json:"loan_repayment_mode"`
	LoanTermYears        int                `json:"loan_term_years"`
	RepaymentFunding     FundingSource      `json:"repayment_funding_source"`
	MonthlyCashFlow      float64            `json:"monthly_cash_flow"`
	CashAnnualRate       float64            `json:"cash_annual_rate"`
	RebalanceFrequency   RebalanceFrequency `json:"rebalance_frequency"`
	ThresholdEnabled     bool               `json:"threshold_enabled"`
	ThresholdPct         float64            `json:"threshold_pct"`
	DividendReinvestment bool               `json:"dividend_reinvestment"`
}

// NewPortfolioConfig validates raw input and builds the immutable
// scenario configuration. Ticker symbols are trimmed and upper-cased
// here so downstream code never re-normalizes; percent weights are
// divided by 100 here and never re-derived.
func NewPortfolioConfig(in ConfigInput) (*PortfolioConfig, error) {
	var totalPct float64
	assets := make([]Asset, 0, len(in.Assets))

	for _, a := range in.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if symbol == "" {
			return nil, ErrEmptySymbol
		}
		if a.WeightPct < 0 || a.WeightPct > 100 {
			return nil, fmt.Errorf("%w: %s has weight %.2f%%", ErrWeightOutOfRange, symbol, a.WeightPct)
		}
		totalPct += a.WeightPct
		assets = append(assets, Asset{
			Symbol:       symbol,
			TargetWeight: a.WeightPct / 100,
		})
	}

	if totalPct > 100 {
		return nil, fmt.Errorf("%w: total %.2f%%", ErrWeightsExceedBudget, totalPct)
	}
	if len(assets) == 0 {
		// A run needs at least one priced asset; without one there is
		// nothing to fetch and nothing to simulate.
		return nil, ErrNoAssets
	}
	if in.InitialCapital < 0 || in.LoanAmount < 0 {
		return nil, ErrNegativeCapital
	}
	if in.LoanAmount > 0 && in.LoanRepaymentMode == LoanAmortized && in.LoanTermYears <= 0 {
		return nil, ErrInvalidLoanTerm
	}

	frequency := in.RebalanceFrequency
	if frequency == "" {
		frequency = RebalanceNone
	}
	mode := in.LoanRepaymentMode
	if mode == "" {
		mode = LoanInterestOnly
	}
	funding := in.RepaymentFunding
	if funding == "" {
		funding = FundingExternal
	}

	return &PortfolioConfig{
		Assets:               assets,
		CashWeight:           (100 - totalPct) / 100,
		InitialCapital:       in.InitialCapital,
		LoanAmount:           in.LoanAmount,
		LoanAnnualRate:       in.LoanAnnualRate,
		LoanRepaymentMode:    mode,
		LoanTermYears:        in.LoanTermYears,
		RepaymentFunding:     funding,
		MonthlyCashFlow:      in.MonthlyCashFlow,
		CashAnnualRate:       in.CashAnnualRate,
		RebalanceFrequency:   frequency,
		ThresholdEnabled:     in.ThresholdEnabled,
		ThresholdPct:         in.ThresholdPct,
		DividendReinvestment: in.DividendReinvestment,
	}, nil
}

// Symbols returns the configured asset symbols in order.
func (c *PortfolioConfig) Symbols() []string {
	symbols := make([]string, len(c.Assets))
	for i, a := range c.Assets {
		symbols[i] = a.Symbol
	}
	return symbols
}

// Leveraged reports whether the scenario carries a loan.
func (c *PortfolioConfig) Leveraged() bool {
	return c.LoanAmount > 0
}

// PriceRow is one trading day of the aligned price table.
type PriceRow struct {
	Date   time.Time          `json:"date"`
	Prices map[string]float64 `json:"prices"`
}

// PriceTable is an ascending-date sequence of trading days with one
// positive price per symbol per row. The market data provider
// forward-fills gaps and drops incomplete rows before handing the table
// to the engine; gaps inside the table are a provider defect, not an
// engine concern.
type PriceTable struct {
	Symbols []string   `json:"symbols"`
	Rows    []PriceRow `json:"rows"`
}

// Len returns the number of trading days in the table.
func (t *PriceTable) Len() int { return len(t.Rows) }

// HasSymbol reports whether the symbol appears in at least one row.
func (t *PriceTable) HasSymbol(symbol string) bool {
	for _, row := range t.Rows {
		if p, ok := row.Prices[symbol]; ok && p > 0 {
			return true
		}
	}
	return false
}

// FirstValidPrice returns the first positive price for the symbol in
// date order. Used only as the initialization fallback when the day-0
// price is missing or non-positive.
func (t *PriceTable) FirstValidPrice(symbol string) (float64, bool) {
	for _, row := range t.Rows {
		if p, ok := row.Prices[symbol]; ok && p > 0 {
			return p, true
		}
	}
	return 0, false
}

// DailyReturns derives per-symbol simple day-over-day returns. The
// first row has no prior and is dropped, so each series has Len()-1
// entries. Symbols missing a price on either side of a day pair carry
// a zero return for that day, keeping the series aligned.
func (t *PriceTable) DailyReturns() map[string][]float64 {
	returns := make(map[string][]float64, len(t.Symbols))
	for _, symbol := range t.Symbols {
		series := make([]float64, 0, len(t.Rows)-1)
		for i := 1; i < len(t.Rows); i++ {
			prev, okPrev := t.Rows[i-1].Prices[symbol]
			curr, okCurr := t.Rows[i].Prices[symbol]
			if okPrev && okCurr && prev > 0 {
				series = append(series, curr/prev-1)
			} else {
				series = append(series, 0)
			}
		}
		returns[symbol] = series
	}
	return returns
}

// DailyRecord is one immutable snapshot per trading day, the engine's
// sole output.
type DailyRecord struct {
	Date          time.Time `json:"date"`
	NetWorth      float64   `json:"net_worth"`
	TotalInvested float64   `json:"total_invested"`
	Cash          float64   `json:"cash"`
	LoanBalance   float64   `json:"loan_balance"`
	Rebalanced    bool      `json:"rebalanced"`
}

// Summary aggregates a finished run for the result surface.
type Summary struct {
	RunID          string     `json:"run_id"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	TradingDays    int        `json:"trading_days"`
	FinalNetWorth  float64    `json:"final_net_worth"`
	FinalInvested  float64    `json:"final_invested"`
	Profit         float64    `json:"profit"`
	ROIPct         float64    `json:"roi_pct"`
	MaxDrawdownPct float64    `json:"max_drawdown_pct"`
	AdjustedStart  *time.Time `json:"adjusted_start,omitempty"`
}

// WeightTolerance is the floating tolerance for the weight invariant:
// asset weights plus the cash sleeve always sum to exactly one.
const WeightTolerance = 1e-9

// CheckWeightInvariant verifies Σ target weights + cash weight == 1.
func (c *PortfolioConfig) CheckWeightInvariant() bool {
	sum := c.CashWeight
	for _, a := range c.Assets {
		sum += a.TargetWeight
	}
	return math.Abs(sum-1) <= WeightTolerance
}
