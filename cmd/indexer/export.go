package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketScope/internal/config"
	"marketScope/internal/storage"
	"marketScope/internal/storage/postgres"
)

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
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
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	exporter := storage.NewLedgerExporter(cfg.Out)
	exported, err := exporter.Export(ctx, store.Ledger())
	if err != nil {
		return err
	}

	logger.Info("export complete",
		zap.String("out", cfg.Out),
		zap.Int("records", exported),
	)
	return nil
}
