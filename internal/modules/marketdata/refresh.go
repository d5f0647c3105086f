package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// refreshLookbackYears is how much history the background job keeps
// warm for tracked symbols.
const refreshLookbackYears = 20

// RefreshJob pre-warms the price cache for a fixed symbol set so the
// first simulation of the day does not pay the fetch latency. It also
// purges stale snapshots.
type RefreshJob struct {
	provider *Provider
	symbols  []string
	log      zerolog.Logger
}

// NewRefreshJob creates the cache refresh job.
func NewRefreshJob(provider *Provider, symbols []string, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		provider: provider,
		symbols:  symbols,
		log:      log.With().Str("service", "price-refresh").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *RefreshJob) Name() string { return "price-refresh" }

// Run fetches fresh history for every tracked symbol. Individual
// failures are logged and skipped; the job never aborts the batch.
func (j *RefreshJob) Run(ctx context.Context) error {
	if len(j.symbols) == 0 {
		return nil
	}

	started := time.Now()
	end := time.Now().UTC()
	start := end.AddDate(-refreshLookbackYears, 0, 0)

	var refreshed int
	for _, symbol := range j.symbols {
		for _, adjusted := range []bool{true, false} {
			if _, err := j.provider.GetSeries(ctx, []string{symbol}, start, end, adjusted); err != nil {
				j.log.Warn().Err(err).Str("symbol", symbol).Msg("Refresh fetch failed")
				continue
			}
			refreshed++
		}
	}

	if j.provider.cache != nil {
		if purged, err := j.provider.cache.Purge(ctx); err == nil && purged > 0 {
			j.log.Info().Int64("purged", purged).Msg("Purged stale price snapshots")
		}
	}

	j.log.Info().
		Int("snapshots", refreshed).
		Dur("elapsed", time.Since(started)).
		Msg("Price cache refresh finished")

	return nil
}
