package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketScope/internal/config"
	"marketScope/internal/ingest"
	"marketScope/internal/nft"
	"marketScope/internal/projection"
	"marketScope/internal/replay"
	"marketScope/internal/scheduler"
	"marketScope/internal/storage/postgres"
	"marketScope/internal/webhook"
)

// runIngest is the out-of-band injection path: the same ingestion contract
// as the webhook, fed from a JSONL file of batches.
func runIngest(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadIngest(cfgFile, cmd.Flags())
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
	if cfg.In == "" {
		return fmt.Errorf("input path is required")
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
	sched := scheduler.NewScheduler(replayer, scheduler.DefaultFailureBudget, logger)
	ingester := ingest.NewIngester(decoder, store.Ledger(), sched, logger)

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var batches, records, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		batches++

		var batch webhook.Batch
		if err := json.Unmarshal(line, &batch); err != nil {
			failed++
			logger.Warn("invalid batch line", zap.Int("line", batches), zap.Error(err))
			continue
		}

		ingested, err := ingester.IngestBatch(ctx, batch.Block, batch.Logs)
		if err != nil {
			failed++
			logger.Warn("batch rejected", zap.Uint64("block", batch.Block.Number), zap.Error(err))
			continue
		}
		records += ingested
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	// Drain what was just ingested.
	if err := sched.Tick(ctx); err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	logger.Info("ingest complete",
		zap.Int("batches", batches),
		zap.Int("records", records),
		zap.Int("failed", failed),
	)
	return nil
}
