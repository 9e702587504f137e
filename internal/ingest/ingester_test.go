package ingest

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"marketScope/internal/model"
	"marketScope/internal/nft"
	"marketScope/internal/storage/memory"
)

const (
	collectionAddr  = "0x1111111111111111111111111111111111111111"
	marketplaceAddr = "0x2222222222222222222222222222222222222222"
	holderA         = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	holderB         = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type countingSignaler struct {
	signals int
}

func (c *countingSignaler) Signal() { c.signals++ }

func newTestIngester(t *testing.T) (*Ingester, *memory.Store, *countingSignaler) {
	t.Helper()
	decoder, err := nft.NewDecoder([]string{marketplaceAddr})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	store := memory.NewStore()
	signaler := &countingSignaler{}
	return NewIngester(decoder, store.Ledger(), signaler, nil), store, signaler
}

func transferLog(t *testing.T, from, to string, tokenID, logIndex uint64) model.RawLog {
	t.Helper()
	tokenABI, err := nft.ERC721ABI()
	if err != nil {
		t.Fatalf("erc721 abi: %v", err)
	}
	addrTopic := func(addr string) string {
		return common.BytesToHash(common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32)).Hex()
	}
	return model.RawLog{
		Address: collectionAddr,
		Topics: []string{
			tokenABI.Events["Transfer"].ID.Hex(),
			addrTopic(from),
			addrTopic(to),
			common.BigToHash(new(big.Int).SetUint64(tokenID)).Hex(),
		},
		Data:     "0x",
		TxHash:   "0xf00d",
		LogIndex: logIndex,
	}
}

func TestIngestBatchPersistsAndSignals(t *testing.T) {
	ingester, store, signaler := newTestIngester(t)
	ctx := context.Background()

	header := model.BlockHeader{Number: 100, Timestamp: 1700000000}
	logs := []model.RawLog{
		transferLog(t, holderA, holderB, 7, 0),
		transferLog(t, holderB, holderA, 8, 1),
	}

	n, err := ingester.IngestBatch(ctx, header, logs)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("ingested = %d, want 2", n)
	}
	if signaler.signals != 1 {
		t.Fatalf("signals = %d, want 1", signaler.signals)
	}

	records, err := store.Ledger().All(ctx)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(records))
	}
	for _, record := range records {
		if record.Processed {
			t.Fatalf("record %s ingested as processed", record.ID())
		}
		if record.IngestedAt.IsZero() {
			t.Fatalf("record %s missing ingested-at", record.ID())
		}
	}
}

func TestIngestBatchRejectsRetransmission(t *testing.T) {
	ingester, store, signaler := newTestIngester(t)
	ctx := context.Background()

	header := model.BlockHeader{Number: 100, Timestamp: 1700000000}
	logs := []model.RawLog{transferLog(t, holderA, holderB, 7, 0)}

	if _, err := ingester.IngestBatch(ctx, header, logs); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	n, err := ingester.IngestBatch(ctx, header, logs)
	if err != nil {
		t.Fatalf("duplicate ingest must not error: %v", err)
	}
	if n != 0 {
		t.Fatalf("duplicate ingested = %d, want 0", n)
	}
	if signaler.signals != 1 {
		t.Fatalf("signals = %d after duplicate, want 1", signaler.signals)
	}

	records, err := store.Ledger().All(ctx)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(records))
	}
}

func TestIngestBatchAtomicFailure(t *testing.T) {
	ingester, store, signaler := newTestIngester(t)
	ctx := context.Background()

	bad := transferLog(t, holderA, holderB, 7, 1)
	bad.Topics = bad.Topics[:2] // registered signature, malformed topics

	header := model.BlockHeader{Number: 100, Timestamp: 1700000000}
	logs := []model.RawLog{
		transferLog(t, holderA, holderB, 6, 0),
		bad,
	}

	if _, err := ingester.IngestBatch(ctx, header, logs); err == nil {
		t.Fatalf("expected ingest to fail")
	}
	if signaler.signals != 0 {
		t.Fatalf("failed batch signalled")
	}

	records, err := store.Ledger().All(ctx)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("ledger rows = %d after failed batch, want 0", len(records))
	}
}

func TestIngestBatchAllUnknownSignatures(t *testing.T) {
	ingester, store, signaler := newTestIngester(t)
	ctx := context.Background()

	logs := []model.RawLog{{
		Address:  collectionAddr,
		Topics:   []string{"0x00000000000000000000000000000000000000000000000000000000deadbeef"},
		Data:     "0x",
		TxHash:   "0xf00d",
		LogIndex: 0,
	}}

	n, err := ingester.IngestBatch(ctx, model.BlockHeader{Number: 100}, logs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("ingested = %d, want 0", n)
	}
	if signaler.signals != 0 {
		t.Fatalf("empty batch signalled")
	}

	records, err := store.Ledger().All(ctx)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("ledger rows = %d, want 0", len(records))
	}
}
