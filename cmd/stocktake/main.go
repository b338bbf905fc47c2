package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stocktake/internal/bot"
	"stocktake/internal/config"
	"stocktake/internal/ingest"
	"stocktake/internal/ledger"
	"stocktake/internal/pipeline"
	"stocktake/internal/reconcile"
	"stocktake/internal/vendorlookup"
	"stocktake/internal/vision"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "stocktake",
	Short: "stocktake - Discord device-intake bot",
	Long: `stocktake watches a Discord channel for device-label photos, extracts
make/model/serial/part-number/MAC fields with a vision model, corroborates the
manufacturer via MAC vendor lookup, and appends one row per item to a Google
Sheet, replying with a per-item summary.`,
	RunE:          runBot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkHeaderCmd = &cobra.Command{
	Use:   "check-header",
	Short: "Ensure the sheet's first row matches the expected header, then exit",
	RunE:  runCheckHeader,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the stocktake version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stocktake %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "stocktake.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(checkHeaderCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	} else if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	analyzer, err := vision.NewAnalyzer(ctx, cfg.Vision, logger)
	if err != nil {
		return err
	}

	led, err := ledger.NewSheetsLedger(ctx, cfg.Sheet, logger)
	if err != nil {
		return err
	}
	if err := led.EnsureHeader(ctx); err != nil {
		logger.Warn("sheet header check failed", zap.Error(err))
	}

	resolver := vendorlookup.NewClient(cfg.MACLookup, logger)
	orchestrator := pipeline.New(analyzer, reconcile.New(resolver), logger)
	coordinator := ingest.New(orchestrator, led, loc, logger)

	b, err := bot.New(cfg.Discord, coordinator, logger)
	if err != nil {
		return err
	}
	if err := b.Start(); err != nil {
		return err
	}
	logger.Info("stocktake started",
		zap.String("version", version),
		zap.String("provider", cfg.Vision.Provider),
		zap.String("timezone", cfg.Timezone))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	return b.Stop()
}

func runCheckHeader(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	led, err := ledger.NewSheetsLedger(ctx, cfg.Sheet, logger)
	if err != nil {
		return err
	}
	if err := led.EnsureHeader(ctx); err != nil {
		return err
	}
	fmt.Println("Sheet header OK.")
	return nil
}
