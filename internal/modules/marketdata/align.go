package marketdata

import (
	"sort"
	"time"

	"github.com/ycliang/growthsim/internal/domain"
)

// alignSeries merges per-symbol candle series into one table over the
// union of all trading dates. Gaps are forward-filled from the symbol's
// last known price; rows where any symbol still has no price (before
// its listing date) are dropped, so the table starts when the youngest
// asset has history.
func alignSeries(series map[string][]Candle, symbols []string) *domain.PriceTable {
	dateSet := make(map[time.Time]struct{})
	for _, candles := range series {
		for _, c := range candles {
			dateSet[c.Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	byDate := make(map[string]map[time.Time]float64, len(symbols))
	for symbol, candles := range series {
		m := make(map[time.Time]float64, len(candles))
		for _, c := range candles {
			m[c.Date] = c.Close
		}
		byDate[symbol] = m
	}

	table := &domain.PriceTable{Symbols: symbols}
	last := make(map[string]float64, len(symbols))

	for _, date := range dates {
		row := domain.PriceRow{Date: date, Prices: make(map[string]float64, len(symbols))}
		complete := true
		for _, symbol := range symbols {
			if price, ok := byDate[symbol][date]; ok {
				last[symbol] = price
			}
			if price, ok := last[symbol]; ok {
				row.Prices[symbol] = price
			} else {
				complete = false
			}
		}
		if complete {
			table.Rows = append(table.Rows, row)
		}
	}

	return table
}
