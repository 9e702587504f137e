package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

const (
	contractAddr = "0x1111111111111111111111111111111111111111"
	userAddr     = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

func ledgerRecord(block, logIndex uint64) model.LedgerRecord {
	return model.LedgerRecord{
		BlockNumber:     block,
		TxHash:          "0xf00d",
		LogIndex:        logIndex,
		ContractAddress: contractAddr,
		Kind:            model.KindTransfer,
		Payload:         []byte(`{}`),
	}
}

func TestLedgerInsertBatchRejectsDuplicates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := []model.LedgerRecord{ledgerRecord(100, 0), ledgerRecord(100, 1)}
	require.NoError(t, store.Ledger().InsertBatch(ctx, first))

	// One colliding record fails the whole batch; nothing is written.
	second := []model.LedgerRecord{ledgerRecord(101, 0), ledgerRecord(100, 1)}
	require.ErrorIs(t, store.Ledger().InsertBatch(ctx, second), storage.ErrDuplicateKey)

	exists, err := store.Ledger().Exists(ctx, ledgerRecord(101, 0).ID())
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLedgerUnprocessedOrdering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	records := []model.LedgerRecord{
		ledgerRecord(102, 0),
		ledgerRecord(100, 2),
		ledgerRecord(100, 0),
		ledgerRecord(101, 1),
	}
	require.NoError(t, store.Ledger().InsertBatch(ctx, records))

	unprocessed, err := store.Ledger().Unprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, unprocessed, 4)
	for i := 1; i < len(unprocessed); i++ {
		prev, cur := unprocessed[i-1], unprocessed[i]
		require.True(t,
			prev.BlockNumber < cur.BlockNumber ||
				(prev.BlockNumber == cur.BlockNumber && prev.LogIndex < cur.LogIndex),
			"%s before %s", prev.ID(), cur.ID())
	}
}

func TestLedgerMarkProcessed(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	record := ledgerRecord(100, 0)
	require.NoError(t, store.Ledger().InsertBatch(ctx, []model.LedgerRecord{record}))
	require.NoError(t, store.Ledger().MarkProcessed(ctx, record.ID()))

	unprocessed, err := store.Ledger().Unprocessed(ctx)
	require.NoError(t, err)
	require.Empty(t, unprocessed)

	// Processed records remain in the ledger.
	all, err := store.Ledger().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Processed)

	missing := ledgerRecord(999, 0)
	require.ErrorIs(t, store.Ledger().MarkProcessed(ctx, missing.ID()), storage.ErrNotFound)
}

func TestUserEnsureIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Users().Ensure(ctx, userAddr))
	require.NoError(t, store.Users().Ensure(ctx, userAddr))
	require.ErrorIs(t, store.Users().Ensure(ctx, ""), storage.ErrInvalidInput)
}

func TestNFTRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.NFTs().Get(ctx, contractAddr, 7)
	require.ErrorIs(t, err, storage.ErrNotFound)

	token := &model.NFT{ContractAddress: contractAddr, TokenID: 7, Owner: userAddr}
	require.NoError(t, store.NFTs().Upsert(ctx, token))

	got, err := store.NFTs().Get(ctx, contractAddr, 7)
	require.NoError(t, err)
	require.Equal(t, userAddr, got.Owner)

	// Mutating the returned copy must not leak back into the store.
	got.Owner = "0xother"
	again, err := store.NFTs().Get(ctx, contractAddr, 7)
	require.NoError(t, err)
	require.Equal(t, userAddr, again.Owner)

	require.NoError(t, store.NFTs().Delete(ctx, contractAddr, 7))
	_, err = store.NFTs().Get(ctx, contractAddr, 7)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBidScopedDeletes(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	bidderB := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	require.NoError(t, store.Bids().Upsert(ctx, &model.Bid{ContractAddress: contractAddr, TokenID: 7, Bidder: userAddr, Price: 1}))
	require.NoError(t, store.Bids().Upsert(ctx, &model.Bid{ContractAddress: contractAddr, TokenID: 7, Bidder: bidderB, Price: 2}))
	require.NoError(t, store.Bids().Upsert(ctx, &model.Bid{ContractAddress: contractAddr, TokenID: 8, Bidder: userAddr, Price: 3}))

	require.NoError(t, store.Bids().DeleteByBidder(ctx, contractAddr, 7, userAddr))
	bids, err := store.Bids().ByToken(ctx, contractAddr, 7)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, bidderB, bids[0].Bidder)

	require.NoError(t, store.Bids().DeleteForToken(ctx, contractAddr, 7))
	bids, err = store.Bids().ByToken(ctx, contractAddr, 7)
	require.NoError(t, err)
	require.Empty(t, bids)

	// Bids on other tokens are untouched.
	bids, err = store.Bids().ByToken(ctx, contractAddr, 8)
	require.NoError(t, err)
	require.Len(t, bids, 1)
}

func TestRecomputeStats(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Collections().Get(ctx, contractAddr)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Listings().Upsert(ctx, &model.Listing{
		ContractAddress: contractAddr, TokenID: 1, PriceUSD: 300,
	}))
	require.NoError(t, store.Listings().Upsert(ctx, &model.Listing{
		ContractAddress: contractAddr, TokenID: 2, PriceUSD: 100,
	}))
	require.NoError(t, store.Transactions().Upsert(ctx, &model.TransactionRecord{
		TxHash: "0x01", LogIndex: 1, ContractAddress: contractAddr, AmountUSD: 250,
	}))
	require.NoError(t, store.Transactions().Upsert(ctx, &model.TransactionRecord{
		TxHash: "0x02", LogIndex: 1, ContractAddress: contractAddr, AmountUSD: 750,
	}))

	require.NoError(t, store.Collections().RecomputeStats(ctx, contractAddr))
	stats, err := store.Collections().Get(ctx, contractAddr)
	require.NoError(t, err)
	require.Equal(t, 100.0, stats.FloorUSD)
	require.Equal(t, 1000.0, stats.VolumeUSD)

	// Stats derive from current state, not from deltas.
	require.NoError(t, store.Listings().Delete(ctx, contractAddr, 2))
	require.NoError(t, store.Collections().RecomputeStats(ctx, contractAddr))
	stats, err = store.Collections().Get(ctx, contractAddr)
	require.NoError(t, err)
	require.Equal(t, 300.0, stats.FloorUSD)
}

func TestNotificationsByRecipient(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Notifications().Upsert(ctx, &model.Notification{
		TxHash: "0x01", LogIndex: 1, Recipient: userAddr, Type: model.NotificationSold,
		ContractAddress: contractAddr, TokenID: 7,
	}))
	require.NoError(t, store.Notifications().Upsert(ctx, &model.Notification{
		TxHash: "0x02", LogIndex: 1, Recipient: "0xother", Type: model.NotificationSold,
		ContractAddress: contractAddr, TokenID: 7,
	}))

	got, err := store.Notifications().ByRecipient(ctx, userAddr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "0x01", got[0].TxHash)

	require.NoError(t, store.Notifications().DeleteForToken(ctx, contractAddr, 7))
	got, err = store.Notifications().ByRecipient(ctx, userAddr)
	require.NoError(t, err)
	require.Empty(t, got)
}
