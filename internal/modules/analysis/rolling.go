// Package analysis post-processes a simulation's net-worth series into
// trailing-window annualized return statistics.
package analysis

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ycliang/growthsim/internal/domain"
)

// TradingDaysPerYear is the trading-day approximation of a calendar year.
const TradingDaysPerYear = 252

// RollingPoint is one trailing-window annualized return observation.
type RollingPoint struct {
	Date time.Time `json:"date"`
	CAGR float64   `json:"cagr"`
}

// RollingResult is the rolling-return series with derived statistics.
type RollingResult struct {
	HoldingYears int            `json:"holding_years"`
	TargetReturn float64        `json:"target_return"`
	Points       []RollingPoint `json:"points"`
	WinRate      float64        `json:"win_rate"`
	MeanCAGR     float64        `json:"mean_cagr"`
	MinCAGR      float64        `json:"min_cagr"`
}

// RollingReturns computes the trailing-window CAGR series over the
// net-worth column of a record sequence: window = holdingYears * 252,
// one point per day i >= window, in date order. winRate is the fraction
// of points beating targetReturn.
//
// Returns domain.ErrInsufficientHistory when the series is shorter than
// window+1 days; the caller reports the gap without failing the run.
func RollingReturns(records []domain.DailyRecord, holdingYears int, targetReturn float64) (*RollingResult, error) {
	if holdingYears < 1 {
		return nil, fmt.Errorf("holding years must be >= 1, got %d", holdingYears)
	}

	window := holdingYears * TradingDaysPerYear
	if len(records) < window+1 {
		return nil, fmt.Errorf("%w: need %d records, have %d",
			domain.ErrInsufficientHistory, window+1, len(records))
	}

	points := make([]RollingPoint, 0, len(records)-window)
	cagrs := make([]float64, 0, len(records)-window)

	for i := window; i < len(records); i++ {
		base := records[i-window].NetWorth
		if base <= 0 {
			// A non-positive base has no meaningful growth rate; skip
			// the observation rather than emit NaN.
			continue
		}
		cagr := math.Pow(records[i].NetWorth/base, 1/float64(holdingYears)) - 1
		points = append(points, RollingPoint{Date: records[i].Date, CAGR: cagr})
		cagrs = append(cagrs, cagr)
	}

	result := &RollingResult{
		HoldingYears: holdingYears,
		TargetReturn: targetReturn,
		Points:       points,
	}

	if len(cagrs) > 0 {
		var wins int
		for _, c := range cagrs {
			if c > targetReturn {
				wins++
			}
		}
		result.WinRate = float64(wins) / float64(len(cagrs))
		result.MeanCAGR = stat.Mean(cagrs, nil)
		result.MinCAGR = floats.Min(cagrs)
	}

	return result, nil
}
