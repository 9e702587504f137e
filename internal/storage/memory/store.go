// Package memory provides in-memory implementations of the storage
// interfaces for unit tests and local experimentation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
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

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	listings := &ListingStore{data: make(map[tokenKey]model.Listing)}
	transactions := &TransactionStore{data: make(map[txLogKey]model.TransactionRecord)}
	return &Store{
		ledger:        &LedgerStore{data: make(map[model.LedgerID]model.LedgerRecord)},
		users:         &UserStore{data: make(map[string]model.User)},
		nfts:          &NFTStore{data: make(map[tokenKey]model.NFT)},
		listings:      listings,
		bids:          &BidStore{data: make(map[bidKey]model.Bid)},
		activities:    &ActivityStore{data: make(map[txLogKey]model.ActivityEntry)},
		notifications: &NotificationStore{data: make(map[txLogKey]model.Notification)},
		favorites:     &FavoriteStore{data: make(map[favoriteKey]model.Favorite)},
		transactions:  transactions,
		collections:   &CollectionStore{data: make(map[string]model.CollectionStats), listings: listings, transactions: transactions},
		currencies:    &CurrencyStore{data: make(map[string]model.Currency)},
	}
}

func (s *Store) Ledger() storage.LedgerStore               { return s.ledger }
func (s *Store) Users() storage.UserStore                  { return s.users }
func (s *Store) NFTs() storage.NFTStore                    { return s.nfts }
func (s *Store) Listings() storage.ListingStore            { return s.listings }
func (s *Store) Bids() storage.BidStore                    { return s.bids }
func (s *Store) Activities() storage.ActivityStore         { return s.activities }
func (s *Store) Notifications() storage.NotificationStore  { return s.notifications }
func (s *Store) Favorites() storage.FavoriteStore          { return s.favorites }
func (s *Store) Transactions() storage.TransactionStore    { return s.transactions }
func (s *Store) Collections() storage.CollectionStore      { return s.collections }
func (s *Store) Currencies() storage.CurrencyStore         { return s.currencies }

// RegisterCurrency seeds collaborator currency data for tests.
func (s *Store) RegisterCurrency(c model.Currency) {
	s.currencies.mu.Lock()
	defer s.currencies.mu.Unlock()
	s.currencies.data[c.Address] = c
}

type tokenKey struct {
	contract string
	tokenID  uint64
}

type txLogKey struct {
	txHash   string
	logIndex uint64
}

type bidKey struct {
	contract string
	tokenID  uint64
	bidder   string
}

type favoriteKey struct {
	contract string
	tokenID  uint64
	user     string
}

// LedgerStore is an in-memory storage.LedgerStore.
type LedgerStore struct {
	mu   sync.RWMutex
	data map[model.LedgerID]model.LedgerRecord
}

func (s *LedgerStore) InsertBatch(_ context.Context, records []model.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, exists := s.data[r.ID()]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, r := range records {
		s.data[r.ID()] = r
	}
	return nil
}

func (s *LedgerStore) Exists(_ context.Context, id model.LedgerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok, nil
}

func (s *LedgerStore) Unprocessed(_ context.Context) ([]model.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.LedgerRecord, 0)
	for _, r := range s.data {
		if !r.Processed {
			out = append(out, r)
		}
	}
	sortLedger(out)
	return out, nil
}

func (s *LedgerStore) MarkProcessed(_ context.Context, id model.LedgerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.Processed = true
	s.data[id] = r
	return nil
}

func (s *LedgerStore) All(_ context.Context) ([]model.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.LedgerRecord, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, r)
	}
	sortLedger(out)
	return out, nil
}

func sortLedger(records []model.LedgerRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber < records[j].BlockNumber
		}
		return records[i].LogIndex < records[j].LogIndex
	})
}

// UserStore is an in-memory storage.UserStore.
type UserStore struct {
	mu   sync.RWMutex
	data map[string]model.User
}

func (s *UserStore) Ensure(_ context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[address]; !ok {
		s.data[address] = model.User{Address: address, CreatedAt: time.Now().UTC()}
	}
	return nil
}

// NFTStore is an in-memory storage.NFTStore.
type NFTStore struct {
	mu   sync.RWMutex
	data map[tokenKey]model.NFT
}

func (s *NFTStore) Get(_ context.Context, contract string, tokenID uint64) (*model.NFT, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.data[tokenKey{contract, tokenID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := n
	return &out, nil
}

func (s *NFTStore) Upsert(_ context.Context, n *model.NFT) error {
	if n == nil || n.ContractAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[tokenKey{n.ContractAddress, n.TokenID}] = *n
	return nil
}

func (s *NFTStore) Delete(_ context.Context, contract string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, tokenKey{contract, tokenID})
	return nil
}
