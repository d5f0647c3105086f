package marketdata

import "time"

// chartResponse maps the Yahoo Finance v8 chart API response. Only the
// fields the provider consumes are declared; nulls inside the price
// arrays decode to zero and are filtered during parsing.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
				Adjclose []struct {
					Adjclose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Candle is one trading day's closing price for a single symbol,
// normalized to midnight UTC.
type Candle struct {
	Date  time.Time
	Close float64
}
