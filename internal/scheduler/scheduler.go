// Package scheduler coordinates replay passes: demand-counted, mutually
// exclusive, with a consecutive-failure budget.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultFailureBudget is the number of consecutive failed passes after
// which scheduling stops until an operator resets the scheduler.
const DefaultFailureBudget = 3

// PassRunner executes one replay pass over all unprocessed ledger records.
type PassRunner interface {
	Run(ctx context.Context) error
}

// Scheduler decides when to run a replay pass. Signal and Tick are safe to
// call concurrently; at most one pass runs at a time.
type Scheduler struct {
	runner        PassRunner
	logger        *zap.Logger
	failureBudget int32

	running  atomic.Bool
	demand   atomic.Int64
	failures atomic.Int32
}

func NewScheduler(runner PassRunner, failureBudget int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if failureBudget <= 0 {
		failureBudget = DefaultFailureBudget
	}
	return &Scheduler{
		runner:        runner,
		logger:        logger,
		failureBudget: int32(failureBudget),
	}
}

// Signal records that new ledger records may exist. Called by ingestion
// success only; it never triggers a pass directly.
func (s *Scheduler) Signal() {
	s.demand.Add(1)
}

// Tick runs at most one replay pass. It is a no-op when there is no
// demand, when a pass is already running, or when the failure budget is
// exhausted. Mutual exclusion uses an atomic check-and-set so concurrent
// ticks cannot both observe running=false.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.demand.Load() == 0 {
		return nil
	}
	if s.failures.Load() >= s.failureBudget {
		s.logger.Error("replay suspended: failure budget exhausted, manual reset required",
			zap.Int32("consecutive_failures", s.failures.Load()),
			zap.Int64("pending_demand", s.demand.Load()),
		)
		return nil
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	defer s.running.Store(false)

	if err := s.runner.Run(ctx); err != nil {
		failures := s.failures.Add(1)
		s.logger.Warn("replay pass failed",
			zap.Error(err),
			zap.Int32("consecutive_failures", failures),
		)
		if failures >= s.failureBudget {
			s.logger.Error("failure budget exhausted, replay suspended",
				zap.Int32("budget", s.failureBudget),
			)
		}
		return err
	}

	// A successful pass drains every unprocessed record, so all
	// outstanding demand is satisfied at once.
	s.failures.Store(0)
	s.demand.Store(0)
	return nil
}

// Reset clears the failure counter and re-arms demand. This is the
// explicit operator intervention that ends the terminal degradation.
func (s *Scheduler) Reset() {
	s.failures.Store(0)
	s.demand.Add(1)
	s.logger.Info("scheduler reset")
}

// Pending returns the current demand counter.
func (s *Scheduler) Pending() int64 {
	return s.demand.Load()
}

// ConsecutiveFailures returns the current failure counter.
func (s *Scheduler) ConsecutiveFailures() int {
	return int(s.failures.Load())
}

// Run ticks on a fixed cadence until the context is cancelled. Pass
// errors are already counted and logged by Tick.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = s.Tick(ctx)
		}
	}
}
