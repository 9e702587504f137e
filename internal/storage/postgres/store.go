// Package postgres implements the storage interfaces on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

// Store provides Postgres persistence for the ledger and marketplace
// aggregates.
type Store struct {
	pool *pgxpool.Pool

	ledger        *LedgerStore
	users         *UserStore
	nfts          *NFTStore
	listings      *ListingStore
	bids          *BidStore
	activities    *ActivityStore
	notifications *NotificationStore
	favorites     *FavoriteStore
	transactions  *TransactionStore
	collections   *CollectionStore
	currencies    *CurrencyStore
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:          pool,
		ledger:        &LedgerStore{pool: pool},
		users:         &UserStore{pool: pool},
		nfts:          &NFTStore{pool: pool},
		listings:      &ListingStore{pool: pool},
		bids:          &BidStore{pool: pool},
		activities:    &ActivityStore{pool: pool},
		notifications: &NotificationStore{pool: pool},
		favorites:     &FavoriteStore{pool: pool},
		transactions:  &TransactionStore{pool: pool},
		collections:   &CollectionStore{pool: pool},
		currencies:    &CurrencyStore{pool: pool},
	}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ledger() storage.LedgerStore              { return s.ledger }
func (s *Store) Users() storage.UserStore                 { return s.users }
func (s *Store) NFTs() storage.NFTStore                   { return s.nfts }
func (s *Store) Listings() storage.ListingStore           { return s.listings }
func (s *Store) Bids() storage.BidStore                   { return s.bids }
func (s *Store) Activities() storage.ActivityStore        { return s.activities }
func (s *Store) Notifications() storage.NotificationStore { return s.notifications }
func (s *Store) Favorites() storage.FavoriteStore         { return s.favorites }
func (s *Store) Transactions() storage.TransactionStore   { return s.transactions }
func (s *Store) Collections() storage.CollectionStore     { return s.collections }
func (s *Store) Currencies() storage.CurrencyStore        { return s.currencies }

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// LedgerStore implements storage.LedgerStore.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// InsertBatch queues all inserts on one pgx.Batch inside a transaction, so
// the batch travels in a single round trip and a constraint violation
// persists nothing.
func (s *LedgerStore) InsertBatch(ctx context.Context, records []model.LedgerRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO ledger_records (
				block_number, tx_hash, log_index, contract_address, kind,
				payload, block_time, processed, ingested_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, false, now())
		`,
			int64(r.BlockNumber),
			r.TxHash,
			int64(r.LogIndex),
			r.ContractAddress,
			string(r.Kind),
			[]byte(r.Payload),
			r.BlockTime,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			if isDuplicateKey(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert ledger record %s: %w", records[i].ID(), err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *LedgerStore) Exists(ctx context.Context, id model.LedgerID) (bool, error) {
	var one int
	row := s.pool.QueryRow(ctx, `
		SELECT 1 FROM ledger_records
		WHERE block_number = $1 AND tx_hash = $2 AND log_index = $3
	`, int64(id.BlockNumber), id.TxHash, int64(id.LogIndex))
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LedgerStore) Unprocessed(ctx context.Context) ([]model.LedgerRecord, error) {
	return s.query(ctx, `
		SELECT block_number, tx_hash, log_index, contract_address, kind,
		       payload, block_time, processed, ingested_at
		FROM ledger_records
		WHERE processed = false
		ORDER BY block_number ASC, log_index ASC
	`)
}

func (s *LedgerStore) All(ctx context.Context) ([]model.LedgerRecord, error) {
	return s.query(ctx, `
		SELECT block_number, tx_hash, log_index, contract_address, kind,
		       payload, block_time, processed, ingested_at
		FROM ledger_records
		ORDER BY block_number ASC, log_index ASC
	`)
}

func (s *LedgerStore) query(ctx context.Context, sql string) ([]model.LedgerRecord, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LedgerRecord
	for rows.Next() {
		var r model.LedgerRecord
		var blockNumber, logIndex int64
		var kind string
		var payload []byte
		if err := rows.Scan(&blockNumber, &r.TxHash, &logIndex, &r.ContractAddress, &kind,
			&payload, &r.BlockTime, &r.Processed, &r.IngestedAt); err != nil {
			return nil, err
		}
		r.BlockNumber = uint64(blockNumber)
		r.LogIndex = uint64(logIndex)
		r.Kind = model.EventKind(kind)
		r.Payload = payload
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *LedgerStore) MarkProcessed(ctx context.Context, id model.LedgerID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ledger_records SET processed = true
		WHERE block_number = $1 AND tx_hash = $2 AND log_index = $3
	`, int64(id.BlockNumber), id.TxHash, int64(id.LogIndex))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UserStore implements storage.UserStore.
type UserStore struct {
	pool *pgxpool.Pool
}

func (s *UserStore) Ensure(ctx context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (address, created_at) VALUES ($1, now())
		ON CONFLICT (address) DO NOTHING
	`, address)
	return err
}

// NFTStore implements storage.NFTStore.
type NFTStore struct {
	pool *pgxpool.Pool
}

func (s *NFTStore) Get(ctx context.Context, contract string, tokenID uint64) (*model.NFT, error) {
	var n model.NFT
	var id int64
	row := s.pool.QueryRow(ctx, `
		SELECT contract_address, token_id, owner, name, token_uri, minted, mint_tx_hash, updated_at
		FROM nfts WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	if err := row.Scan(&n.ContractAddress, &id, &n.Owner, &n.Name, &n.TokenURI,
		&n.Minted, &n.MintTxHash, &n.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	n.TokenID = uint64(id)
	return &n, nil
}

func (s *NFTStore) Upsert(ctx context.Context, n *model.NFT) error {
	if n == nil || n.ContractAddress == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO nfts (contract_address, token_id, owner, name, token_uri, minted, mint_tx_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (contract_address, token_id)
		DO UPDATE SET
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			token_uri = EXCLUDED.token_uri,
			minted = EXCLUDED.minted,
			mint_tx_hash = EXCLUDED.mint_tx_hash,
			updated_at = now()
	`, n.ContractAddress, int64(n.TokenID), n.Owner, n.Name, n.TokenURI, n.Minted, n.MintTxHash)
	return err
}

func (s *NFTStore) Delete(ctx context.Context, contract string, tokenID uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM nfts WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	return err
}

// ListingStore implements storage.ListingStore.
type ListingStore struct {
	pool *pgxpool.Pool
}

func (s *ListingStore) Upsert(ctx context.Context, l *model.Listing) error {
	if l == nil || l.ContractAddress == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO listings (contract_address, token_id, price, currency, price_usd, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (contract_address, token_id)
		DO UPDATE SET
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			price_usd = EXCLUDED.price_usd,
			updated_at = now()
	`, l.ContractAddress, int64(l.TokenID), l.Price, l.Currency, l.PriceUSD)
	return err
}

func (s *ListingStore) Get(ctx context.Context, contract string, tokenID uint64) (*model.Listing, error) {
	var l model.Listing
	var id int64
	row := s.pool.QueryRow(ctx, `
		SELECT contract_address, token_id, price, currency, price_usd, updated_at
		FROM listings WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	if err := row.Scan(&l.ContractAddress, &id, &l.Price, &l.Currency, &l.PriceUSD, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	l.TokenID = uint64(id)
	return &l, nil
}

func (s *ListingStore) Delete(ctx context.Context, contract string, tokenID uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM listings WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	return err
}

// BidStore implements storage.BidStore.
type BidStore struct {
	pool *pgxpool.Pool
}

func (s *BidStore) Upsert(ctx context.Context, b *model.Bid) error {
	if b == nil || b.ContractAddress == "" || b.Bidder == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bids (contract_address, token_id, bidder, price, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (contract_address, token_id, bidder)
		DO UPDATE SET price = EXCLUDED.price, currency = EXCLUDED.currency
	`, b.ContractAddress, int64(b.TokenID), b.Bidder, b.Price, b.Currency)
	return err
}

func (s *BidStore) ByToken(ctx context.Context, contract string, tokenID uint64) ([]model.Bid, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT contract_address, token_id, bidder, price, currency, created_at
		FROM bids WHERE contract_address = $1 AND token_id = $2
		ORDER BY bidder ASC
	`, contract, int64(tokenID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Bid
	for rows.Next() {
		var b model.Bid
		var id int64
		if err := rows.Scan(&b.ContractAddress, &id, &b.Bidder, &b.Price, &b.Currency, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.TokenID = uint64(id)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *BidStore) DeleteForToken(ctx context.Context, contract string, tokenID uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM bids WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	return err
}

func (s *BidStore) DeleteByBidder(ctx context.Context, contract string, tokenID uint64, bidder string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM bids WHERE contract_address = $1 AND token_id = $2 AND bidder = $3
	`, contract, int64(tokenID), bidder)
	return err
}

// ActivityStore implements storage.ActivityStore.
type ActivityStore struct {
	pool *pgxpool.Pool
}

func (s *ActivityStore) Upsert(ctx context.Context, e *model.ActivityEntry) error {
	if e == nil || e.TxHash == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activities (tx_hash, log_index, contract_address, token_id, event, "from", "to", amount, currency, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx_hash, log_index)
		DO UPDATE SET
			event = EXCLUDED.event,
			"from" = EXCLUDED."from",
			"to" = EXCLUDED."to",
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency
	`, e.TxHash, int64(e.LogIndex), e.ContractAddress, int64(e.TokenID), e.Event, e.From, e.To, e.Amount, e.Currency, e.Time)
	return err
}

func (s *ActivityStore) GetByTxLog(ctx context.Context, txHash string, logIndex uint64) (*model.ActivityEntry, error) {
	var e model.ActivityEntry
	var li, id int64
	row := s.pool.QueryRow(ctx, `
		SELECT tx_hash, log_index, contract_address, token_id, event, "from", "to", amount, currency, time
		FROM activities WHERE tx_hash = $1 AND log_index = $2
	`, txHash, int64(logIndex))
	if err := row.Scan(&e.TxHash, &li, &e.ContractAddress, &id, &e.Event, &e.From, &e.To, &e.Amount, &e.Currency, &e.Time); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	e.LogIndex = uint64(li)
	e.TokenID = uint64(id)
	return &e, nil
}

func (s *ActivityStore) ByToken(ctx context.Context, contract string, tokenID uint64) ([]model.ActivityEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, log_index, contract_address, token_id, event, "from", "to", amount, currency, time
		FROM activities WHERE contract_address = $1 AND token_id = $2
		ORDER BY tx_hash ASC, log_index ASC
	`, contract, int64(tokenID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		var li, id int64
		if err := rows.Scan(&e.TxHash, &li, &e.ContractAddress, &id, &e.Event, &e.From, &e.To, &e.Amount, &e.Currency, &e.Time); err != nil {
			return nil, err
		}
		e.LogIndex = uint64(li)
		e.TokenID = uint64(id)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *ActivityStore) DeleteForToken(ctx context.Context, contract string, tokenID uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM activities WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	return err
}

// NotificationStore implements storage.NotificationStore.
type NotificationStore struct {
	pool *pgxpool.Pool
}

func (s *NotificationStore) Upsert(ctx context.Context, n *model.Notification) error {
	if n == nil || n.TxHash == "" || n.Recipient == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (tx_hash, log_index, recipient, type, contract_address, token_id, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tx_hash, log_index)
		DO UPDATE SET recipient = EXCLUDED.recipient, type = EXCLUDED.type
	`, n.TxHash, int64(n.LogIndex), n.Recipient, n.Type, n.ContractAddress, int64(n.TokenID), n.Time)
	return err
}

func (s *NotificationStore) ByRecipient(ctx context.Context, recipient string) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, log_index, recipient, type, contract_address, token_id, time
		FROM notifications WHERE recipient = $1
		ORDER BY tx_hash ASC, log_index ASC
	`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var li, id int64
		if err := rows.Scan(&n.TxHash, &li, &n.Recipient, &n.Type, &n.ContractAddress, &id, &n.Time); err != nil {
			return nil, err
		}
		n.LogIndex = uint64(li)
		n.TokenID = uint64(id)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationStore) DeleteForToken(ctx context.Context, contract string, tokenID uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	return err
}

// FavoriteStore implements storage.FavoriteStore.
type FavoriteStore struct {
	pool *pgxpool.Pool
}

func (s *FavoriteStore) Add(ctx context.Context, f *model.Favorite) error {
	if f == nil || f.ContractAddress == "" || f.UserAddress == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO favorites (contract_address, token_id, user_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (contract_address, token_id, user_address) DO NOTHING
	`, f.ContractAddress, int64(f.TokenID), f.UserAddress)
	return err
}

func (s *FavoriteStore) DeleteForToken(ctx context.Context, contract string, tokenID uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM favorites WHERE contract_address = $1 AND token_id = $2
	`, contract, int64(tokenID))
	return err
}

// TransactionStore implements storage.TransactionStore.
type TransactionStore struct {
	pool *pgxpool.Pool
}

func (s *TransactionStore) Upsert(ctx context.Context, t *model.TransactionRecord) error {
	if t == nil || t.TxHash == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (tx_hash, log_index, contract_address, token_id, seller, buyer, amount, amount_usd, currency, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx_hash, log_index)
		DO UPDATE SET
			seller = EXCLUDED.seller,
			buyer = EXCLUDED.buyer,
			amount = EXCLUDED.amount,
			amount_usd = EXCLUDED.amount_usd,
			currency = EXCLUDED.currency
	`, t.TxHash, int64(t.LogIndex), t.ContractAddress, int64(t.TokenID), t.Seller, t.Buyer, t.Amount, t.AmountUSD, t.Currency, t.Time)
	return err
}

func (s *TransactionStore) GetByTxLog(ctx context.Context, txHash string, logIndex uint64) (*model.TransactionRecord, error) {
	var t model.TransactionRecord
	var li, id int64
	row := s.pool.QueryRow(ctx, `
		SELECT tx_hash, log_index, contract_address, token_id, seller, buyer, amount, amount_usd, currency, time
		FROM transactions WHERE tx_hash = $1 AND log_index = $2
	`, txHash, int64(logIndex))
	if err := row.Scan(&t.TxHash, &li, &t.ContractAddress, &id, &t.Seller, &t.Buyer, &t.Amount, &t.AmountUSD, &t.Currency, &t.Time); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	t.LogIndex = uint64(li)
	t.TokenID = uint64(id)
	return &t, nil
}

// CollectionStore implements storage.CollectionStore.
type CollectionStore struct {
	pool *pgxpool.Pool
}

func (s *CollectionStore) Get(ctx context.Context, contract string) (*model.CollectionStats, error) {
	var c model.CollectionStats
	row := s.pool.QueryRow(ctx, `
		SELECT contract_address, floor_usd, volume_usd, updated_at
		FROM collections WHERE contract_address = $1
	`, contract)
	if err := row.Scan(&c.ContractAddress, &c.FloorUSD, &c.VolumeUSD, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// RecomputeStats derives floor and volume from the current listing and
// transaction sets in one statement.
func (s *CollectionStore) RecomputeStats(ctx context.Context, contract string) error {
	if contract == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO collections (contract_address, floor_usd, volume_usd, updated_at)
		VALUES (
			$1,
			COALESCE((SELECT MIN(price_usd) FROM listings WHERE contract_address = $1), 0),
			COALESCE((SELECT SUM(amount_usd) FROM transactions WHERE contract_address = $1), 0),
			now()
		)
		ON CONFLICT (contract_address)
		DO UPDATE SET
			floor_usd = EXCLUDED.floor_usd,
			volume_usd = EXCLUDED.volume_usd,
			updated_at = now()
	`, contract)
	return err
}

// CurrencyStore implements storage.CurrencyStore.
type CurrencyStore struct {
	pool *pgxpool.Pool
}

func (s *CurrencyStore) Get(ctx context.Context, address string) (*model.Currency, error) {
	var c model.Currency
	var decimals int16
	row := s.pool.QueryRow(ctx, `
		SELECT address, symbol, decimals, usd_price
		FROM currencies WHERE address = $1
	`, address)
	if err := row.Scan(&c.Address, &c.Symbol, &decimals, &c.USDPrice); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	c.Decimals = uint8(decimals)
	return &c, nil
}
