package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/broker/alpaca"
	"github.com/rustyeddy/scalper/config"
	"github.com/rustyeddy/scalper/engine"
	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/logger"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/stream"
	"github.com/rustyeddy/scalper/trade"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream quotes and trade breakouts for a symbol",
	Long: `Connect to the quote stream, select a symbol and trade the
pullback-breakout pattern until interrupted.

Credentials come from the environment (a .env file is loaded when
present); the config file names the variables.

Example:
  scalper run --symbol AAPL --entry-type 10s
  scalper run --symbol TSLA --entry-type custom --custom-level 201.50`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runSymbol      string
	runEntryType   string
	runCustomLevel float64
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON); defaults apply when omitted")
	runCmd.Flags().StringVarP(&runSymbol, "symbol", "s", "", "symbol to stream and trade (required)")
	runCmd.Flags().StringVarP(&runEntryType, "entry-type", "e", "none", "entry source: 10s, 1m, 5m, custom or none")
	runCmd.Flags().Float64VarP(&runCustomLevel, "custom-level", "l", 0, "price level for custom entries")
	runCmd.MarkFlagRequired("symbol")
}

func runRun(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	entryType, err := market.ParseTimeframe(runEntryType)
	if err != nil {
		return err
	}
	if entryType == market.TFCustom && runCustomLevel <= 0 {
		return fmt.Errorf("custom entries need --custom-level above zero")
	}

	logger.Init(cfg.Log)
	log := logger.S()
	defer log.Sync()

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	keyID := os.Getenv(cfg.Broker.KeyIDEnv)
	secretKey := os.Getenv(cfg.Broker.SecretKeyEnv)
	if keyID == "" || secretKey == "" {
		return fmt.Errorf("broker credentials missing: set %s and %s", cfg.Broker.KeyIDEnv, cfg.Broker.SecretKeyEnv)
	}
	client := alpaca.NewClient(keyID, secretKey, cfg.Broker.Paper)

	apiKey := os.Getenv(cfg.Stream.APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("stream credentials missing: set %s", cfg.Stream.APIKeyEnv)
	}
	strm := stream.New(stream.Config{URL: cfg.Stream.URL, APIKey: apiKey}, log)

	settings, err := cfg.Trading.Settings()
	if err != nil {
		return fmt.Errorf("trading settings: %w", err)
	}

	notifier := notify.NewLogNotifier(log)
	manager := trade.NewManager(clock.New(), client, j, notifier, log, settings)
	eng := engine.New(strm, market.NewQuoteStore(), manager, notifier, log)

	strm.OnQuote(eng.HandleQuote)
	strm.OnTrade(func(tr stream.Trade) {
		log.Debugw("trade print", "symbol", tr.Symbol, "price", tr.Price, "size", tr.Size)
		eng.ConfirmFill(tr.Symbol)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile positions: %w", err)
	}

	go eng.Run(ctx)
	strm.Connect(ctx)

	if err := strm.WaitReady(ctx, 30*time.Second); err != nil {
		return fmt.Errorf("stream never became ready: %w", err)
	}

	if err := await("select symbol", eng.SelectSymbol, runSymbol); err != nil {
		return err
	}
	if entryType == market.TFCustom {
		eng.SetCustomLevel(runSymbol, runCustomLevel, nil)
	}
	eng.SetEntryType(runSymbol, entryType, nil)

	log.Infow("scalper running",
		"symbol", runSymbol, "entryType", string(entryType),
		"paper", cfg.Broker.Paper, "positionSize", settings.PositionSize)

	<-ctx.Done()
	log.Infow("shutting down")
	return nil
}

// await runs a callback-style engine command synchronously.
func await(name string, f func(string, func(error)), arg string) error {
	ch := make(chan error, 1)
	f(arg, func(err error) { ch <- err })
	select {
	case err := <-ch:
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("%s timed out", name)
	}
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	if cfg.Type == "csv" {
		return journal.NewCSV(cfg.TradesFile, cfg.ExecutionsFile)
	}
	return journal.NewSQLite(cfg.DBPath)
}
