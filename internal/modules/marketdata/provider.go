package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ycliang/growthsim/internal/domain"
)

// Series is an aligned price table plus data-quality metadata.
type Series struct {
	Table *domain.PriceTable

	// AdjustedStart is set when the aligned table begins after the
	// requested start because the youngest asset listed later. The run
	// proceeds over the shortened range; callers surface the warning.
	AdjustedStart *time.Time
}

// Provider fetches, aligns, and caches multi-symbol daily price
// history. The cache is optional; a nil cache means every call hits
// the network.
type Provider struct {
	client *Client
	cache  *Cache
	log    zerolog.Logger
}

// NewProvider creates a price series provider.
func NewProvider(client *Client, cache *Cache, log zerolog.Logger) *Provider {
	return &Provider{
		client: client,
		cache:  cache,
		log:    log.With().Str("service", "marketdata").Logger(),
	}
}

// GetSeries returns the aligned daily price table for symbols over
// [start, end]. All symbols are fetched concurrently; any symbol with
// no data at all fails the whole request before a simulation can start.
func (p *Provider) GetSeries(ctx context.Context, symbols []string, start, end time.Time, adjusted bool) (*Series, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols requested", domain.ErrNoData)
	}

	key := cacheKey(symbols, start, end, adjusted)
	if p.cache != nil {
		if table, ok := p.cache.Get(ctx, key); ok {
			p.log.Debug().Str("key", key).Msg("Price cache hit")
			return p.buildSeries(table, start)
		}
	}

	series := make(map[string][]Candle, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			candles, err := p.client.FetchDailyCloses(gctx, symbol, start, end, adjusted)
			if err != nil {
				return err
			}
			mu.Lock()
			series[symbol] = candles
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := alignSeries(series, symbols)
	if table.Len() == 0 {
		return nil, fmt.Errorf("%w: no overlapping history for %s",
			domain.ErrNoData, strings.Join(symbols, ","))
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, key, table); err != nil {
			p.log.Warn().Err(err).Msg("Failed to cache price snapshot")
		}
	}

	return p.buildSeries(table, start)
}

func (p *Provider) buildSeries(table *domain.PriceTable, requestedStart time.Time) (*Series, error) {
	if table.Len() == 0 {
		return nil, domain.ErrNoData
	}

	s := &Series{Table: table}

	// A few days of slack covers weekends and holidays at the start of
	// the requested range.
	first := table.Rows[0].Date
	if first.After(requestedStart.AddDate(0, 0, 7)) {
		s.AdjustedStart = &first
		p.log.Warn().
			Time("requested_start", requestedStart).
			Time("actual_start", first).
			Msg("Price history starts later than requested")
	}

	return s, nil
}

func cacheKey(symbols []string, start, end time.Time, adjusted bool) string {
	return fmt.Sprintf("%s|%s|%s|adj=%t",
		strings.Join(symbols, ","),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
		adjusted,
	)
}
