package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from the SQLite database.

Subcommands:
  trade       - Get details of a specific trade by ID
  today       - List trades closed today
  day         - List trades closed on a specific day
  executions  - List a symbol's fills, oldest first
  export      - Export a day's closed trades to CSV

Examples:
  scalper journal trade <trade-id>
  scalper journal today
  scalper journal day 2026-08-28
  scalper journal executions AAPL
  scalper journal export 2026-08-28 -o trades.csv`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalExecutionsCmd = &cobra.Command{
	Use:   "executions <symbol>",
	Short: "List a symbol's fills, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalExecutions,
}

var journalExportCmd = &cobra.Command{
	Use:   "export <YYYY-MM-DD>",
	Short: "Export a day's closed trades to CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalExport,
}

var (
	journalDBPath     string
	journalExportPath string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalExecutionsCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./scalper.sqlite", "path to SQLite journal DB")
	journalExportCmd.Flags().StringVarP(&journalExportPath, "output", "o", "trades.csv", "output CSV path")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	renderTrades(os.Stdout, []journal.ClosedTrade{rec})
	return nil
}

func runJournalExecutions(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListExecutionsBySymbol(args[0])
	if err != nil {
		return fmt.Errorf("query executions: %w", err)
	}
	if len(recs) == 0 {
		fmt.Printf("No executions for %s\n", args[0])
		return nil
	}
	renderExecutions(os.Stdout, recs)
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	loc := time.Local
	return listDay(time.Now().In(loc).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(args[0])
}

func listDay(day string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := tradesForDay(j, day)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Printf("No trades closed on %s\n", day)
		return nil
	}
	renderTrades(os.Stdout, recs)
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := tradesForDay(j, args[0])
	if err != nil {
		return err
	}
	if err := journal.ExportTradesCSV(journalExportPath, recs); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Printf("Exported %d trades to %s\n", len(recs), journalExportPath)
	return nil
}

func tradesForDay(j *journal.SQLite, day string) ([]journal.ClosedTrade, error) {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return recs, nil
}

// dayBounds returns the [start, end) interval covering one local day.
func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

func renderTrades(w io.Writer, recs []journal.ClosedTrade) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Trade ID", "Symbol", "Shares", "Entry", "Exit", "Type", "Closed", "P/L", "Reason"})

	var total float64
	for _, r := range recs {
		total += r.ProfitLoss
		t.AppendRow(table.Row{
			r.ID,
			r.Symbol,
			r.Shares,
			fmt.Sprintf("%.2f", r.EntryPrice),
			fmt.Sprintf("%.2f", r.ExitPrice),
			r.EntryType,
			r.ExitTime.Local().Format("15:04:05"),
			fmt.Sprintf("%.2f", r.ProfitLoss),
			r.Reason,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", fmt.Sprintf("%.2f", total), ""})
	t.Render()
}

func renderExecutions(w io.Writer, recs []journal.Execution) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Execution ID", "Symbol", "Qty", "Price", "Side", "Time", "Type"})

	for _, r := range recs {
		t.AppendRow(table.Row{
			r.ID,
			r.Symbol,
			r.Quantity,
			fmt.Sprintf("%.2f", r.Price),
			r.Side,
			r.Time.Local().Format("15:04:05"),
			r.EntryType,
		})
	}
	t.Render()
}
