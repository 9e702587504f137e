// Package replay applies unprocessed ledger records to the marketplace
// projections in total order.
package replay

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

// Projector receives decoded ledger records, one call per record. Every
// implementation must be idempotent: a crash between a mutation and the
// processed-flag commit re-delivers the record on the next pass.
type Projector interface {
	ApplyTransfer(ctx context.Context, record model.LedgerRecord, data model.TransferEventData) error
	ApplySale(ctx context.Context, record model.LedgerRecord, data model.SaleEventData) error
	ApplyPricesSet(ctx context.Context, record model.LedgerRecord, data model.PricesSetEventData) error
	ApplyPriceRemoved(ctx context.Context, record model.LedgerRecord, data model.PriceRemovedEventData) error
	ApplyClone(ctx context.Context, record model.LedgerRecord, data model.CloneEventData) error
}

// Replayer drains all unprocessed ledger records in (block number, log
// index) order, dispatching each to its projection handler.
type Replayer struct {
	ledger    storage.LedgerStore
	projector Projector
	logger    *zap.Logger
}

func NewReplayer(ledger storage.LedgerStore, projector Projector, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{ledger: ledger, projector: projector, logger: logger}
}

// Run executes one replay pass. Records are applied strictly sequentially;
// the pass halts on the first failure, leaving the offending record and
// everything after it unprocessed. Earlier records stay committed.
func (r *Replayer) Run(ctx context.Context) error {
	records, err := r.ledger.Unprocessed(ctx)
	if err != nil {
		return fmt.Errorf("load unprocessed: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	r.logger.Info("replay pass start", zap.Int("records", len(records)))

	applied := 0
	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.apply(ctx, record); err != nil {
			r.logger.Warn("replay halted",
				zap.String("record", record.ID().String()),
				zap.String("kind", string(record.Kind)),
				zap.Int("applied", applied),
				zap.Error(err),
			)
			return fmt.Errorf("apply %s record %s: %w", record.Kind, record.ID(), err)
		}

		if err := r.ledger.MarkProcessed(ctx, record.ID()); err != nil {
			return fmt.Errorf("mark processed %s: %w", record.ID(), err)
		}
		applied++
	}

	r.logger.Info("replay pass complete", zap.Int("applied", applied))
	return nil
}

// apply dispatches one record by kind. The switch is exhaustive over the
// closed enum; a kind that reaches the default arm is a schema error, not
// a retryable condition.
func (r *Replayer) apply(ctx context.Context, record model.LedgerRecord) error {
	switch record.Kind {
	case model.KindTransfer:
		var data model.TransferEventData
		if err := json.Unmarshal(record.Payload, &data); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return r.projector.ApplyTransfer(ctx, record, data)
	case model.KindBought, model.KindOfferAccepted:
		var data model.SaleEventData
		if err := json.Unmarshal(record.Payload, &data); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return r.projector.ApplySale(ctx, record, data)
	case model.KindPricesSet:
		var data model.PricesSetEventData
		if err := json.Unmarshal(record.Payload, &data); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return r.projector.ApplyPricesSet(ctx, record, data)
	case model.KindPriceRemoved:
		var data model.PriceRemovedEventData
		if err := json.Unmarshal(record.Payload, &data); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return r.projector.ApplyPriceRemoved(ctx, record, data)
	case model.KindCloned:
		var data model.CloneEventData
		if err := json.Unmarshal(record.Payload, &data); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return r.projector.ApplyClone(ctx, record, data)
	default:
		return fmt.Errorf("unknown event kind: %q", record.Kind)
	}
}
