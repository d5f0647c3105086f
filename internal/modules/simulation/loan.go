package simulation

import (
	"math"

	"github.com/ycliang/growthsim/internal/domain"
)

// LoanSchedule computes the monthly interest/principal split for the
// simulated loan. The fixed annuity payment is derived once, at
// construction; Step is called by the engine on every month boundary.
type LoanSchedule struct {
	mode        domain.LoanRepaymentMode
	funding     domain.FundingSource
	monthlyRate float64
	payment     float64 // fixed monthly payment, amortized mode only
}

// LoanPayment is the split of one monthly payment.
type LoanPayment struct {
	Interest  float64
	Principal float64
	Total     float64
}

// NewLoanSchedule builds the schedule for a scenario's loan terms.
// Returns nil when the scenario carries no loan.
func NewLoanSchedule(cfg *domain.PortfolioConfig) *LoanSchedule {
	if !cfg.Leveraged() {
		return nil
	}

	s := &LoanSchedule{
		mode:        cfg.LoanRepaymentMode,
		funding:     cfg.RepaymentFunding,
		monthlyRate: cfg.LoanAnnualRate / 12,
	}

	if s.mode == domain.LoanAmortized {
		s.payment = annuityPayment(cfg.LoanAmount, s.monthlyRate, cfg.LoanTermYears*12)
	}

	return s
}

// annuityPayment computes the constant monthly payment for a fully
// amortizing loan: B0 * r * (1+r)^n / ((1+r)^n - 1). A zero rate
// degenerates to straight-line principal.
func annuityPayment(balance, monthlyRate float64, periods int) float64 {
	if periods <= 0 {
		return 0
	}
	if monthlyRate == 0 {
		return balance / float64(periods)
	}
	growth := math.Pow(1+monthlyRate, float64(periods))
	return balance * monthlyRate * growth / (growth - 1)
}

// MonthlyPayment returns the fixed payment amount. For interest-only
// loans the payment varies with the balance, so this returns zero.
func (s *LoanSchedule) MonthlyPayment() float64 {
	return s.payment
}

// FundingSource reports where payments are drawn from.
func (s *LoanSchedule) FundingSource() domain.FundingSource {
	return s.funding
}

// Step returns the interest/principal split for one month at the given
// outstanding balance.
//
// Interest-only: interest accrues on the balance every period and the
// principal is never reduced; the balance stays constant for the whole
// run unless explicitly paid down.
//
// Amortized: interest on the current balance, remainder of the fixed
// payment goes to principal, clamped so principal never exceeds the
// balance (the final payment may be smaller than the fixed amount).
func (s *LoanSchedule) Step(balance float64) LoanPayment {
	if balance <= 0 {
		return LoanPayment{}
	}

	interest := balance * s.monthlyRate

	if s.mode == domain.LoanInterestOnly {
		return LoanPayment{
			Interest: interest,
			Total:    interest,
		}
	}

	principal := s.payment - interest
	if principal < 0 {
		principal = 0
	}
	if principal > balance {
		principal = balance
	}

	return LoanPayment{
		Interest:  interest,
		Principal: principal,
		Total:     interest + principal,
	}
}
