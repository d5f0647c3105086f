// Package simulation contains the day-by-day portfolio simulation
// engine: loan scheduling, the rebalance policy, and the state machine
// that turns a price table plus a scenario configuration into a daily
// record series with summary statistics.
package simulation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ycliang/growthsim/internal/domain"
)

// state is the mutable portfolio state, exclusively owned by one run.
// It is built fresh from the configuration and the first price row,
// mutated once per trading day, and discarded when the run ends.
type state struct {
	cash          float64
	shares        map[string]float64
	loanBalance   float64
	totalInvested float64
}

// Result is a finished simulation run.
type Result struct {
	Records []domain.DailyRecord `json:"records"`
	Summary domain.Summary       `json:"summary"`
}

// Engine advances portfolio state one trading day at a time.
type Engine struct {
	cfg  *domain.PortfolioConfig
	loan *LoanSchedule
	log  zerolog.Logger
}

// NewEngine creates an engine for one scenario.
func NewEngine(cfg *domain.PortfolioConfig, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:  cfg,
		loan: NewLoanSchedule(cfg),
		log:  log.With().Str("service", "simulation").Logger(),
	}
}

// Run executes the full day loop over the price table and returns the
// record series plus summary statistics. The table must already be
// cleaned and aligned by the market data provider.
func (e *Engine) Run(table *domain.PriceTable) (*Result, error) {
	if table == nil || table.Len() == 0 {
		return nil, domain.ErrNoData
	}

	st, err := e.initialize(table)
	if err != nil {
		return nil, err
	}

	records := make([]domain.DailyRecord, 0, table.Len())
	dailyCashRate := e.cfg.CashAnnualRate / 365

	for i, row := range table.Rows {
		// Cash accrual, applied every trading day present in the table.
		st.cash += st.cash * dailyCashRate

		monthBoundary, yearBoundary := boundaries(table.Rows, i)

		if monthBoundary {
			e.applyMonthlyEvents(st)
		}

		// Valuation. A symbol missing from this day's row is skipped:
		// its market value contribution is omitted, never an error.
		stockValue := 0.0
		assetValues := make(map[string]float64, len(e.cfg.Assets))
		for _, asset := range e.cfg.Assets {
			price, ok := row.Prices[asset.Symbol]
			if !ok || price <= 0 {
				continue
			}
			value := st.shares[asset.Symbol] * price
			assetValues[asset.Symbol] = value
			stockValue += value
		}

		totalAssets := st.cash + stockValue
		netWorth := totalAssets - st.loanBalance

		rebalance := ShouldRebalance(e.rebalanceInput(monthBoundary, yearBoundary, totalAssets, assetValues))

		// Liquidity breach forces a rebalance regardless of policy.
		if st.cash < 0 {
			rebalance = true
		}

		if rebalance && totalAssets > 0 {
			e.executeRebalance(st, row, totalAssets)
		} else {
			rebalance = false
		}

		records = append(records, domain.DailyRecord{
			Date:          row.Date,
			NetWorth:      netWorth,
			TotalInvested: st.totalInvested,
			Cash:          st.cash,
			LoanBalance:   st.loanBalance,
			Rebalanced:    rebalance,
		})
	}

	return &Result{
		Records: records,
		Summary: buildSummary(records),
	}, nil
}

// initialize allocates (initial capital + loan) across assets and the
// cash sleeve at day-0 prices. A non-positive or missing day-0 price
// falls back to the symbol's first subsequent valid price; a symbol
// absent from the entire table is a fatal configuration error.
func (e *Engine) initialize(table *domain.PriceTable) (*state, error) {
	deployable := e.cfg.InitialCapital + e.cfg.LoanAmount
	first := table.Rows[0]

	st := &state{
		cash:          deployable * e.cfg.CashWeight,
		shares:        make(map[string]float64, len(e.cfg.Assets)),
		loanBalance:   e.cfg.LoanAmount,
		totalInvested: e.cfg.InitialCapital,
	}

	for _, asset := range e.cfg.Assets {
		price, ok := first.Prices[asset.Symbol]
		if !ok || price <= 0 {
			price, ok = table.FirstValidPrice(asset.Symbol)
			if !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrSymbolNotInTable, asset.Symbol)
			}
			e.log.Debug().
				Str("symbol", asset.Symbol).
				Float64("price", price).
				Msg("Day-0 price missing, using first valid price")
		}
		st.shares[asset.Symbol] = deployable * asset.TargetWeight / price
	}

	return st, nil
}

// applyMonthlyEvents applies the monthly cash flow and the loan step on
// a month boundary. Only deposits grow total invested; withdrawals do
// not shrink the contribution record.
func (e *Engine) applyMonthlyEvents(st *state) {
	st.cash += e.cfg.MonthlyCashFlow
	if e.cfg.MonthlyCashFlow > 0 {
		st.totalInvested += e.cfg.MonthlyCashFlow
	}

	if e.loan == nil || st.loanBalance <= 0 {
		return
	}

	pay := e.loan.Step(st.loanBalance)
	st.loanBalance -= pay.Principal
	if st.loanBalance < 0 {
		st.loanBalance = 0
	}

	switch e.loan.FundingSource() {
	case domain.FundingPortfolio:
		// Serviced from the simulated portfolio.
		st.cash -= pay.Total
	default:
		// External money injected to service debt counts as invested
		// capital and never touches simulated cash.
		st.totalInvested += pay.Total
	}
}

// rebalanceInput assembles the pure policy input for one day.
func (e *Engine) rebalanceInput(monthBoundary, yearBoundary bool, totalAssets float64, assetValues map[string]float64) RebalanceInput {
	in := RebalanceInput{
		Frequency:        e.cfg.RebalanceFrequency,
		MonthBoundary:    monthBoundary,
		YearBoundary:     yearBoundary,
		ThresholdEnabled: e.cfg.ThresholdEnabled && totalAssets > 0,
		ThresholdPct:     e.cfg.ThresholdPct,
		TrackCash:        e.cfg.CashWeight > 0,
		CashTarget:       e.cfg.CashWeight,
	}

	if totalAssets <= 0 {
		return in
	}

	in.Assets = make([]WeightDrift, 0, len(e.cfg.Assets))
	for _, asset := range e.cfg.Assets {
		value, ok := assetValues[asset.Symbol]
		if !ok {
			continue
		}
		in.Assets = append(in.Assets, WeightDrift{
			Symbol:  asset.Symbol,
			Current: value / totalAssets,
			Target:  asset.TargetWeight,
		})
	}
	in.CashCurrent = (totalAssets - sumValues(assetValues)) / totalAssets

	return in
}

// executeRebalance restores target weights at the row's prices: trading
// is frictionless, instantaneous, and fractional, and cash absorbs
// exactly the residual sleeve. Assets without a price on this day keep
// their share counts.
func (e *Engine) executeRebalance(st *state, row domain.PriceRow, totalAssets float64) {
	var deployed float64
	for _, asset := range e.cfg.Assets {
		price, ok := row.Prices[asset.Symbol]
		if !ok || price <= 0 {
			continue
		}
		targetValue := totalAssets * asset.TargetWeight
		st.shares[asset.Symbol] = targetValue / price
		deployed += targetValue
	}
	st.cash = totalAssets - deployed
}

// boundaries reports whether row i opens a new calendar month or year.
// A day is a month boundary iff its calendar month differs from the
// previous trading day's month, which also covers months whose 1st
// falls on a non-trading day. The first row is not a boundary: its
// capital is deployed by initialization, not by a monthly event.
func boundaries(rows []domain.PriceRow, i int) (month, year bool) {
	if i == 0 {
		return false, false
	}
	prev, curr := rows[i-1].Date, rows[i].Date
	month = curr.Month() != prev.Month() || curr.Year() != prev.Year()
	year = curr.Year() != prev.Year()
	return month, year
}

// buildSummary derives the result-surface scalars from the record
// series: final net worth and invested capital, profit, ROI, and max
// drawdown off the running net-worth peak.
func buildSummary(records []domain.DailyRecord) domain.Summary {
	if len(records) == 0 {
		return domain.Summary{RunID: uuid.NewString()}
	}

	last := records[len(records)-1]
	profit := last.NetWorth - last.TotalInvested

	roi := 0.0
	if last.TotalInvested > 0 {
		roi = profit / last.TotalInvested * 100
	}

	peak := records[0].NetWorth
	maxDrawdown := 0.0
	for _, r := range records {
		if r.NetWorth > peak {
			peak = r.NetWorth
		}
		if peak > 0 {
			drawdown := (r.NetWorth - peak) / peak
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return domain.Summary{
		RunID:          uuid.NewString(),
		StartDate:      records[0].Date,
		EndDate:        last.Date,
		TradingDays:    len(records),
		FinalNetWorth:  last.NetWorth,
		FinalInvested:  last.TotalInvested,
		Profit:         profit,
		ROIPct:         roi,
		MaxDrawdownPct: maxDrawdown * 100,
	}
}

func sumValues(m map[string]float64) float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}
