// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	trades     *csv.Writer
	executions *csv.Writer
	tf, ef     *os.File
}

func NewCSV(tradesPath, executionsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(executionsPath)
	if err != nil {
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write([]string{"trade_id", "symbol", "shares", "entry_price", "exit_price", "entry_type", "entry_time", "exit_time", "profit_loss", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"execution_id", "symbol", "quantity", "price", "side", "time", "entry_type"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func (j *CSVJournal) RecordClosedTrade(t ClosedTrade) error {
	err := j.trades.Write([]string{
		t.ID,
		t.Symbol,
		strconv.Itoa(t.Shares),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryType,
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.ProfitLoss),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordExecution(e Execution) error {
	err := j.executions.Write([]string{
		e.ID,
		e.Symbol,
		strconv.Itoa(e.Quantity),
		f(e.Price),
		e.Side,
		e.Time.Format(time.RFC3339),
		e.EntryType,
	})
	if err != nil {
		return err
	}
	j.executions.Flush()
	return j.executions.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.executions.Flush()
	if err := j.executions.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}

// ExportTradesCSV writes closed trades to a standalone CSV file, for
// pulling a day's records out of the SQLite journal.
func ExportTradesCSV(path string, recs []ClosedTrade) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"trade_id", "symbol", "shares", "entry_price", "exit_price", "entry_type", "entry_time", "exit_time", "profit_loss", "reason"}); err != nil {
		return err
	}
	for _, t := range recs {
		err := w.Write([]string{
			t.ID,
			t.Symbol,
			strconv.Itoa(t.Shares),
			f(t.EntryPrice),
			f(t.ExitPrice),
			t.EntryType,
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			f(t.ProfitLoss),
			t.Reason,
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
