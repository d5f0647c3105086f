// Package montecarlo estimates survival probability of a scenario by
// bootstrap-resampling historical daily returns into synthetic future
// paths under the same cash-flow and leverage drag assumptions.
package montecarlo

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/ycliang/growthsim/internal/domain"
)

// TradingDaysPerYear mirrors the engine's trading-day year.
const TradingDaysPerYear = 252

// cashFlowInterval approximates monthly events on simulated paths:
// one cash-flow/interest application every 21 trading days.
const cashFlowInterval = 21

// maxRecordedPaths caps how many full trial paths are kept for
// visualization.
const maxRecordedPaths = 50

// StressParams configures one stress-test batch.
type StressParams struct {
	SimYears        int     `json:"sim_years"`
	Trials          int     `json:"trials"`
	InitialCapital  float64 `json:"initial_capital"`
	MonthlyCashFlow float64 `json:"monthly_cash_flow"`
	Leveraged       bool    `json:"leveraged"`
	LoanAmount      float64 `json:"loan_amount"`
	LoanAnnualRate  float64 `json:"loan_annual_rate"`
	Seed            int64   `json:"seed,omitempty"` // 0 = time-derived
}

// StressResult is the outcome of a stress-test batch.
type StressResult struct {
	Trials      int         `json:"trials"`
	Successes   int         `json:"successes"`
	SuccessRate float64     `json:"success_rate"`
	TerminalP10 float64     `json:"terminal_p10"`
	TerminalP50 float64     `json:"terminal_p50"`
	TerminalP90 float64     `json:"terminal_p90"`
	Paths       [][]float64 `json:"paths"` // first trials' full NAV paths
}

// Tester runs bootstrap stress tests on a bounded worker pool. Trials
// are independent: each reads the shared immutable blended-return
// series and writes only its own accumulator.
type Tester struct {
	numWorkers int
	log        zerolog.Logger
}

// NewTester creates a stress tester. numWorkers <= 0 defaults to the
// number of CPUs.
func NewTester(numWorkers int, log zerolog.Logger) *Tester {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Tester{
		numWorkers: numWorkers,
		log:        log.With().Str("service", "montecarlo").Logger(),
	}
}

// BlendedReturns collapses the table's per-symbol daily returns into a
// single historical series: the equal-weighted mean across whichever
// asset columns have a valid pair of prices that day. Target weights
// are deliberately NOT used for blending; this mirrors the historical
// engine's documented simplification.
func BlendedReturns(table *domain.PriceTable, symbols []string) ([]float64, error) {
	if table == nil || table.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least two price rows", domain.ErrNoData)
	}

	blended := make([]float64, 0, table.Len()-1)
	for i := 1; i < table.Len(); i++ {
		prev, curr := table.Rows[i-1].Prices, table.Rows[i].Prices
		var sum float64
		var n int
		for _, symbol := range symbols {
			p0, ok0 := prev[symbol]
			p1, ok1 := curr[symbol]
			if !ok0 || !ok1 || p0 <= 0 {
				continue
			}
			sum += p1/p0 - 1
			n++
		}
		if n > 0 {
			blended = append(blended, sum/float64(n))
		}
	}

	if len(blended) == 0 {
		return nil, fmt.Errorf("%w: no usable return observations", domain.ErrNoData)
	}
	return blended, nil
}

type trialOutcome struct {
	index    int
	survived bool
	terminal float64
	path     []float64 // nil unless recorded
}

// Run executes the full batch. Progress is reported after every
// completed trial from a single collector goroutine; ctx cancellation
// abandons remaining trials and returns ctx.Err().
func (t *Tester) Run(ctx context.Context, returns []float64, p StressParams, progress ProgressCallback) (*StressResult, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: empty return series", domain.ErrNoData)
	}
	if p.Trials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", p.Trials)
	}
	if p.SimYears <= 0 {
		return nil, fmt.Errorf("simulation years must be positive, got %d", p.SimYears)
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	started := time.Now()
	simDays := p.SimYears * TradingDaysPerYear

	jobs := make(chan int, p.Trials)
	outcomes := make(chan trialOutcome, p.Trials)

	workers := t.numWorkers
	if p.Trials < workers {
		workers = p.Trials
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// Per-trial source: deterministic under a fixed seed
				// regardless of scheduling.
				rng := rand.New(rand.NewSource(seed + int64(idx)))
				outcomes <- runTrial(idx, rng, returns, p, simDays)
			}
		}()
	}

	for idx := 0; idx < p.Trials; idx++ {
		jobs <- idx
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	paths := make([][]float64, 0, maxRecordedPaths)
	terminals := make([]float64, 0, p.Trials)
	var successes, completed int

	for outcome := range outcomes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		completed++
		if outcome.survived {
			successes++
		}
		terminals = append(terminals, outcome.terminal)
		if outcome.path != nil {
			paths = append(paths, outcome.path)
		}
		reportProgress(progress, completed, p.Trials)
	}

	sort.Float64s(terminals)

	result := &StressResult{
		Trials:      p.Trials,
		Successes:   successes,
		SuccessRate: float64(successes) / float64(p.Trials),
		TerminalP10: stat.Quantile(0.10, stat.Empirical, terminals, nil),
		TerminalP50: stat.Quantile(0.50, stat.Empirical, terminals, nil),
		TerminalP90: stat.Quantile(0.90, stat.Empirical, terminals, nil),
		Paths:       paths,
	}

	t.log.Debug().
		Int("trials", p.Trials).
		Float64("success_rate", result.SuccessRate).
		Dur("elapsed", time.Since(started)).
		Msg("Stress test batch finished")

	return result, nil
}

// runTrial compounds one synthetic path: simDays iid draws with
// replacement from the historical blended series, monthly cash flow and
// flat interest drag every 21st day. The path is truncated to zero the
// moment NAV goes non-positive and the trial counts as ruined.
// Principal amortization is not modeled here, only the constant
// interest drag, regardless of the configured repayment mode.
func runTrial(idx int, rng *rand.Rand, returns []float64, p StressParams, simDays int) trialOutcome {
	nav := p.InitialCapital

	var path []float64
	record := idx < maxRecordedPaths
	if record {
		path = make([]float64, 0, simDays+1)
		path = append(path, nav)
	}

	monthlyDrag := 0.0
	if p.Leveraged {
		monthlyDrag = p.LoanAmount * p.LoanAnnualRate / 12
	}

	for d := 0; d < simDays; d++ {
		nav *= 1 + returns[rng.Intn(len(returns))]

		if (d+1)%cashFlowInterval == 0 {
			nav += p.MonthlyCashFlow
			nav -= monthlyDrag
		}

		if nav <= 0 {
			if record {
				path = append(path, 0)
			}
			return trialOutcome{index: idx, survived: false, terminal: 0, path: path}
		}
		if record {
			path = append(path, nav)
		}
	}

	return trialOutcome{index: idx, survived: true, terminal: nav, path: path}
}
