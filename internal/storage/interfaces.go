package storage

import (
	"context"

	"marketScope/internal/model"
)

// LedgerStore persists decoded log records. Rows are append-only: the only
// permitted mutation is flipping processed from false to true.
type LedgerStore interface {
	// InsertBatch writes a batch of unprocessed records atomically.
	// Returns ErrDuplicateKey if any identity already exists.
	InsertBatch(ctx context.Context, records []model.LedgerRecord) error

	// Exists reports whether a record with the given identity is stored.
	Exists(ctx context.Context, id model.LedgerID) (bool, error)

	// Unprocessed returns every processed=false record ordered by
	// (block_number ASC, log_index ASC), the single legal replay order.
	Unprocessed(ctx context.Context) ([]model.LedgerRecord, error)

	// MarkProcessed flips a record to processed=true.
	MarkProcessed(ctx context.Context, id model.LedgerID) error

	// All returns every ledger record in replay order (export surface).
	All(ctx context.Context) ([]model.LedgerRecord, error)
}

// UserStore resolves marketplace participants by lower-cased address.
type UserStore interface {
	// Ensure creates the user if absent. Idempotent.
	Ensure(ctx context.Context, address string) error
}

// NFTStore owns token rows keyed by (contract address, token id).
type NFTStore interface {
	Get(ctx context.Context, contract string, tokenID uint64) (*model.NFT, error)
	Upsert(ctx context.Context, n *model.NFT) error
	Delete(ctx context.Context, contract string, tokenID uint64) error
}

// ListingStore owns the at-most-one active ask per token.
type ListingStore interface {
	Upsert(ctx context.Context, l *model.Listing) error
	Get(ctx context.Context, contract string, tokenID uint64) (*model.Listing, error)
	// Delete removes a token's listing if present. Idempotent.
	Delete(ctx context.Context, contract string, tokenID uint64) error
}

// BidStore owns open offers on tokens.
type BidStore interface {
	Upsert(ctx context.Context, b *model.Bid) error
	ByToken(ctx context.Context, contract string, tokenID uint64) ([]model.Bid, error)
	// DeleteForToken removes all bids on a token. Idempotent.
	DeleteForToken(ctx context.Context, contract string, tokenID uint64) error
	// DeleteByBidder removes one bidder's bids on a token. Idempotent.
	DeleteByBidder(ctx context.Context, contract string, tokenID uint64, bidder string) error
}

// ActivityStore owns the activity feed, keyed by (tx hash, log index).
type ActivityStore interface {
	Upsert(ctx context.Context, e *model.ActivityEntry) error
	GetByTxLog(ctx context.Context, txHash string, logIndex uint64) (*model.ActivityEntry, error)
	ByToken(ctx context.Context, contract string, tokenID uint64) ([]model.ActivityEntry, error)
	DeleteForToken(ctx context.Context, contract string, tokenID uint64) error
}

// NotificationStore owns per-user notifications, keyed by (tx hash, log index).
type NotificationStore interface {
	Upsert(ctx context.Context, n *model.Notification) error
	ByRecipient(ctx context.Context, recipient string) ([]model.Notification, error)
	DeleteForToken(ctx context.Context, contract string, tokenID uint64) error
}

// FavoriteStore is written by the presentation layer; this system only
// cascade-deletes favorites when a token is burned.
type FavoriteStore interface {
	Add(ctx context.Context, f *model.Favorite) error
	DeleteForToken(ctx context.Context, contract string, tokenID uint64) error
}

// TransactionStore owns settled sales, keyed by (tx hash, log index).
type TransactionStore interface {
	Upsert(ctx context.Context, t *model.TransactionRecord) error
	GetByTxLog(ctx context.Context, txHash string, logIndex uint64) (*model.TransactionRecord, error)
}

// CollectionStore owns derived per-collection aggregates.
type CollectionStore interface {
	Get(ctx context.Context, contract string) (*model.CollectionStats, error)

	// RecomputeStats rebuilds floor (MIN listing price USD) and volume
	// (SUM transaction amount USD) from the current listing and
	// transaction sets. Recompute-from-source keeps the aggregate drift-
	// free across partial replays.
	RecomputeStats(ctx context.Context, contract string) error
}

// CurrencyStore is read-only collaborator data: payment token precision
// and the current USD price snapshot.
type CurrencyStore interface {
	Get(ctx context.Context, address string) (*model.Currency, error)
}

// Store aggregates every persistence surface the indexer touches.
type Store interface {
	Ledger() LedgerStore
	Users() UserStore
	NFTs() NFTStore
	Listings() ListingStore
	Bids() BidStore
	Activities() ActivityStore
	Notifications() NotificationStore
	Favorites() FavoriteStore
	Transactions() TransactionStore
	Collections() CollectionStore
	Currencies() CurrencyStore
}
