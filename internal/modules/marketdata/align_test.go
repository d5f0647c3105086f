package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(y int, m time.Month, d int, close float64) Candle {
	return Candle{Date: utcDay(y, m, d), Close: close}
}

func TestAlignSeries_ForwardFillsGaps(t *testing.T) {
	// B has no quote on the 5th; it should carry the 4th's price.
	series := map[string][]Candle{
		"A": {candle(2024, 3, 4, 10), candle(2024, 3, 5, 11), candle(2024, 3, 6, 12)},
		"B": {candle(2024, 3, 4, 20), candle(2024, 3, 6, 22)},
	}

	table := alignSeries(series, []string{"A", "B"})
	require.Equal(t, 3, table.Len())

	assert.Equal(t, 20.0, table.Rows[1].Prices["B"])
	assert.Equal(t, 11.0, table.Rows[1].Prices["A"])
	assert.Equal(t, 22.0, table.Rows[2].Prices["B"])
}

func TestAlignSeries_DropsRowsBeforeYoungestListing(t *testing.T) {
	// B lists on the 6th: earlier rows have nothing to forward-fill
	// from and must be dropped.
	series := map[string][]Candle{
		"A": {candle(2024, 3, 4, 10), candle(2024, 3, 5, 11), candle(2024, 3, 6, 12)},
		"B": {candle(2024, 3, 6, 20)},
	}

	table := alignSeries(series, []string{"A", "B"})
	require.Equal(t, 1, table.Len())
	assert.Equal(t, utcDay(2024, 3, 6), table.Rows[0].Date)
}

func TestAlignSeries_RowsAreDateOrdered(t *testing.T) {
	series := map[string][]Candle{
		"A": {candle(2024, 3, 6, 12), candle(2024, 3, 4, 10), candle(2024, 3, 5, 11)},
	}

	table := alignSeries(series, []string{"A"})
	require.Equal(t, 3, table.Len())
	for i := 1; i < table.Len(); i++ {
		assert.True(t, table.Rows[i].Date.After(table.Rows[i-1].Date))
	}
}

func TestAlignSeries_EmptyInput(t *testing.T) {
	table := alignSeries(map[string][]Candle{}, []string{"A"})
	assert.Equal(t, 0, table.Len())
}
