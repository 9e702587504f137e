package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marketScope/internal/config"
	"marketScope/internal/projection"
	"marketScope/internal/replay"
	"marketScope/internal/scheduler"
	"marketScope/internal/storage/postgres"
)

// runReplay executes one manual replay pass. This is the operator's
// recovery path after a serve process has exhausted its failure budget:
// fix the blocking condition, then run this until it succeeds. With
// --reset-failures the pass goes through the scheduler's Reset and Tick,
// so it is subject to the same demand and failure accounting as a
// scheduled pass.
func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
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

	handlers := projection.NewHandlers(store, logger)
	replayer := replay.NewReplayer(store.Ledger(), handlers, logger)

	if cfg.ResetFailures {
		sched := scheduler.NewScheduler(replayer, scheduler.DefaultFailureBudget, logger)
		sched.Reset()
		return sched.Tick(ctx)
	}

	return replayer.Run(ctx)
}
