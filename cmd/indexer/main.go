package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"marketScope/internal/config"
	"marketScope/internal/ingest"
	"marketScope/internal/nft"
	"marketScope/internal/projection"
	"marketScope/internal/replay"
	"marketScope/internal/scheduler"
	"marketScope/internal/storage/postgres"
	"marketScope/internal/webhook"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "NFT marketplace event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook listener and replay scheduler",
		RunE:  runServe,
	}

	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().String("listen", ":8085", "webhook listen address")
	serveCmd.Flags().StringSlice("marketplace", nil, "marketplace contract addresses (comma-separated)")
	serveCmd.Flags().Duration("tick-interval", 5*time.Second, "replay scheduler tick interval")
	serveCmd.Flags().Int("failure-budget", scheduler.DefaultFailureBudget, "consecutive pass failures before replay suspends")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest log batches from a JSONL file and replay them",
		RunE:  runIngest,
	}

	ingestCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	ingestCmd.Flags().String("in", "", "input batches JSONL")
	ingestCmd.Flags().StringSlice("marketplace", nil, "marketplace contract addresses (comma-separated)")
	ingestCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(ingestCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Run one replay pass over all unprocessed ledger records",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	replayCmd.Flags().Bool("reset-failures", false, "clear the replay failure counter and run the pass through the scheduler")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the event ledger to JSONL",
		RunE:  runExport,
	}

	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	exportCmd.Flags().String("out", "./data/ledger.jsonl", "output JSONL path")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	decoder, err := nft.NewDecoder(cfg.MarketplaceAddrs)
	if err != nil {
		return err
	}

	handlers := projection.NewHandlers(store, logger)
	replayer := replay.NewReplayer(store.Ledger(), handlers, logger)
	sched := scheduler.NewScheduler(replayer, cfg.FailureBudget, logger)
	ingester := ingest.NewIngester(decoder, store.Ledger(), sched, logger)
	server := webhook.NewServer(ingester, logger)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.Handler(),
	}

	go func() {
		_ = sched.Run(ctx, cfg.TickInterval)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("indexer start",
		zap.String("listen", cfg.Listen),
		zap.Int("marketplace_contracts", len(cfg.MarketplaceAddrs)),
		zap.Duration("tick_interval", cfg.TickInterval),
		zap.Int("failure_budget", cfg.FailureBudget),
	)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
