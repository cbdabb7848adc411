package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scalper",
	Short: "A pullback-breakout momentum scalping engine",
	Long: `Scalper streams live quotes for a single symbol, builds 10-second,
1-minute and 5-minute candles, and trades the pullback-then-breakout
pattern: a run of lower highs arms a breakout level, and a tick
crossing above it enters a long scalp with tiered take-profits and a
breakeven stop.

It provides tools for:
  - Live trading against a paper or live brokerage account
  - Custom price-level entries alongside the pattern timeframes
  - An append-only trade journal in SQLite or CSV
  - Querying journal history by day or trade ID`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
