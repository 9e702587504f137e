// Package ingest decodes raw webhook batches into ledger records.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketScope/internal/model"
	"marketScope/internal/nft"
	"marketScope/internal/storage"
)

// Signaler is notified when new ledger records exist. Only ingestion
// success may signal.
type Signaler interface {
	Signal()
}

// Ingester validates and decodes raw log batches, rejects retransmissions,
// and persists new batches atomically.
type Ingester struct {
	decoder  *nft.Decoder
	ledger   storage.LedgerStore
	signaler Signaler
	logger   *zap.Logger
}

func NewIngester(decoder *nft.Decoder, ledger storage.LedgerStore, signaler Signaler, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		decoder:  decoder,
		ledger:   ledger,
		signaler: signaler,
		logger:   logger,
	}
}

// IngestBatch decodes a batch of raw logs with their enclosing block
// header and persists the decoded records. Returns the number of records
// written: zero with a nil error means no new work (nothing decodable, or
// the batch is a retransmission). A malformed known log fails the whole
// batch atomically; nothing is persisted.
func (i *Ingester) IngestBatch(ctx context.Context, header model.BlockHeader, logs []model.RawLog) (int, error) {
	records := make([]model.LedgerRecord, 0, len(logs))
	skipped := 0
	for _, log := range logs {
		record, ok, err := i.decoder.Decode(header, log)
		if err != nil {
			return 0, fmt.Errorf("decode log %d:%d: %w", header.Number, log.LogIndex, err)
		}
		if !ok {
			skipped++
			continue
		}
		records = append(records, *record)
	}

	if len(records) == 0 {
		i.logger.Debug("no decodable logs",
			zap.Uint64("block", header.Number),
			zap.Int("skipped", skipped),
		)
		return 0, nil
	}

	// The push collaborator delivers at least once; an already-stored
	// tail record means the whole batch is a retransmission.
	last := records[len(records)-1]
	exists, err := i.ledger.Exists(ctx, last.ID())
	if err != nil {
		return 0, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		i.logger.Info("duplicate batch ignored",
			zap.Uint64("block", header.Number),
			zap.String("last", last.ID().String()),
		)
		return 0, nil
	}

	ingestedAt := time.Now().UTC()
	for idx := range records {
		records[idx].IngestedAt = ingestedAt
	}

	if err := i.ledger.InsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("store batch: %w", err)
	}

	i.signaler.Signal()

	i.logger.Info("batch ingested",
		zap.Uint64("block", header.Number),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return len(records), nil
}
