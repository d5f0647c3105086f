package simulation

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycliang/growthsim/internal/domain"
)

func TestWriteCSV(t *testing.T) {
	records := []domain.DailyRecord{
		{
			Date:          time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			NetWorth:      1_000_000,
			TotalInvested: 1_000_000,
			Cash:          50_000.5,
			LoanBalance:   0,
		},
		{
			Date:          time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			NetWorth:      1_010_000,
			TotalInvested: 1_000_000,
			Cash:          50_000.5,
			Rebalanced:    true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,net_worth,total_invested,cash,loan_balance,rebalanced", lines[0])
	assert.Equal(t, "2024-01-02,1000000.00,1000000.00,50000.50,0.00,false", lines[1])
	assert.Equal(t, "2024-01-03,1010000.00,1000000.00,50000.50,0.00,true", lines[2])
}

func TestRunStore_PutGetExpiry(t *testing.T) {
	store := NewRunStore(time.Hour)

	result := &Result{Summary: domain.Summary{RunID: "run-1"}}
	store.Put(result)

	got, err := store.Get("run-1")
	require.NoError(t, err)
	assert.Same(t, result, got)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunStore_Expired(t *testing.T) {
	store := NewRunStore(time.Nanosecond)
	store.Put(&Result{Summary: domain.Summary{RunID: "run-1"}})

	time.Sleep(time.Millisecond)
	_, err := store.Get("run-1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}
