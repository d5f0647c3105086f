package simulation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ycliang/growthsim/internal/domain"
)

// WriteCSV streams the record series as CSV, one row per trading day.
func WriteCSV(w io.Writer, records []domain.DailyRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"date", "net_worth", "total_invested", "cash", "loan_balance", "rebalanced"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Date.Format("2006-01-02"),
			strconv.FormatFloat(r.NetWorth, 'f', 2, 64),
			strconv.FormatFloat(r.TotalInvested, 'f', 2, 64),
			strconv.FormatFloat(r.Cash, 'f', 2, 64),
			strconv.FormatFloat(r.LoanBalance, 'f', 2, 64),
			strconv.FormatBool(r.Rebalanced),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
