// Package marketdata fetches daily price history from Yahoo Finance and
// aligns per-symbol series into the single price table the simulation
// engine consumes. Aligned tables are cached in a local SQLite database
// so repeated scenario runs over the same symbols and range skip the
// network entirely.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ycliang/growthsim/internal/domain"
)

// Client queries the Yahoo Finance v8 chart endpoint for daily candles.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Yahoo Finance client. baseURL is overridable so
// tests can point at a local server.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("service", "yahoo").Logger(),
	}
}

// FetchDailyCloses returns the symbol's daily closing prices over
// [start, end]. When adjusted is true the split- and dividend-adjusted
// close is used where Yahoo provides it, which models dividend
// reinvestment; otherwise the raw close is used. Days with no usable
// price (nulls, halts) are dropped.
func (c *Client) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time, adjusted bool) ([]Candle, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL, symbol, start.Unix(), end.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: symbol %s not found", domain.ErrNoData, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, symbol)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", symbol, err)
	}
	if raw.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error for %s: %s", symbol, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no result for symbol %s", domain.ErrNoData, symbol)
	}

	result := raw.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: empty series for symbol %s", domain.ErrNoData, symbol)
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("mismatched close/timestamp lengths for %s", symbol)
	}

	if adjusted && len(result.Indicators.Adjclose) > 0 &&
		len(result.Indicators.Adjclose[0].Adjclose) == len(result.Timestamp) {
		closes = result.Indicators.Adjclose[0].Adjclose
	}

	candles := make([]Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if closes[i] <= 0 {
			continue
		}
		t := time.Unix(ts, 0).UTC()
		candles = append(candles, Candle{
			Date:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Close: closes[i],
		})
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no usable prices for symbol %s", domain.ErrNoData, symbol)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("candles", len(candles)).
		Bool("adjusted", adjusted).
		Msg("Fetched daily closes")

	return candles, nil
}
