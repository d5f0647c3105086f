package simulation

import (
	"math"

	"github.com/ycliang/growthsim/internal/domain"
)

// WeightDrift pairs an asset's current portfolio weight with its target.
type WeightDrift struct {
	Symbol  string
	Current float64
	Target  float64
}

// RebalanceInput is everything the policy looks at for one trading day.
// The engine's negative-cash safety valve is deliberately NOT part of
// the policy; it overrides the decision at the call site.
type RebalanceInput struct {
	Frequency        domain.RebalanceFrequency
	MonthBoundary    bool
	YearBoundary     bool
	ThresholdEnabled bool
	ThresholdPct     float64
	Assets           []WeightDrift
	CashCurrent      float64
	CashTarget       float64
	TrackCash        bool // whether the cash sleeve has a tracked target
}

// ShouldRebalance is the pure rebalance decision. Frequency and
// threshold triggers are independent and OR'd together:
//   - monthly fires on month boundaries, yearly on year boundaries,
//     none never fires from the frequency clause;
//   - with the threshold enabled, any asset whose current weight
//     deviates from target by more than the threshold fires. Assets are
//     checked first, in order, short-circuiting on the first offender;
//     the cash sleeve is checked only when no asset fired.
func ShouldRebalance(in RebalanceInput) bool {
	switch in.Frequency {
	case domain.RebalanceMonthly:
		if in.MonthBoundary {
			return true
		}
	case domain.RebalanceYearly:
		if in.YearBoundary {
			return true
		}
	}

	if !in.ThresholdEnabled {
		return false
	}

	for _, a := range in.Assets {
		if math.Abs(a.Current-a.Target) > in.ThresholdPct {
			return true
		}
	}

	if in.TrackCash && math.Abs(in.CashCurrent-in.CashTarget) > in.ThresholdPct {
		return true
	}

	return false
}
