package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCSVJournalWritesRows(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	execsPath := filepath.Join(dir, "executions.csv")

	j, err := NewCSV(tradesPath, execsPath)
	if err != nil {
		t.Fatalf("new csv journal: %v", err)
	}

	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if err := j.RecordExecution(Execution{
		ID: "ex-1", Symbol: "AAPL", Quantity: 1000, Price: 10.00,
		Side: "buy", Time: now, EntryType: "1m",
	}); err != nil {
		t.Fatalf("record execution: %v", err)
	}
	if err := j.RecordClosedTrade(testTrade("trade-1", now.Add(2*time.Minute))); err != nil {
		t.Fatalf("record trade: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readCSV(t, tradesPath)
	if len(rows) != 2 {
		t.Fatalf("trades rows: got %d want header+1", len(rows))
	}
	if rows[1][0] != "trade-1" || rows[1][9] != "TP1" {
		t.Fatalf("trade row: %v", rows[1])
	}

	rows = readCSV(t, execsPath)
	if len(rows) != 2 {
		t.Fatalf("executions rows: got %d want header+1", len(rows))
	}
	if rows[1][4] != "buy" || rows[1][3] != "10.00" {
		t.Fatalf("execution row: %v", rows[1])
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}
