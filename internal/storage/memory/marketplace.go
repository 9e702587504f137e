package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

// ListingStore is an in-memory storage.ListingStore.
type ListingStore struct {
	mu   sync.RWMutex
	data map[tokenKey]model.Listing
}

func (s *ListingStore) Upsert(_ context.Context, l *model.Listing) error {
	if l == nil || l.ContractAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[tokenKey{l.ContractAddress, l.TokenID}] = *l
	return nil
}

func (s *ListingStore) Get(_ context.Context, contract string, tokenID uint64) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[tokenKey{contract, tokenID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := l
	return &out, nil
}

func (s *ListingStore) Delete(_ context.Context, contract string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, tokenKey{contract, tokenID})
	return nil
}

func (s *ListingStore) byContract(contract string) []model.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Listing, 0)
	for key, l := range s.data {
		if key.contract == contract {
			out = append(out, l)
		}
	}
	return out
}

// BidStore is an in-memory storage.BidStore.
type BidStore struct {
	mu   sync.RWMutex
	data map[bidKey]model.Bid
}

func (s *BidStore) Upsert(_ context.Context, b *model.Bid) error {
	if b == nil || b.ContractAddress == "" || b.Bidder == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[bidKey{b.ContractAddress, b.TokenID, b.Bidder}] = *b
	return nil
}

func (s *BidStore) ByToken(_ context.Context, contract string, tokenID uint64) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Bid, 0)
	for key, b := range s.data {
		if key.contract == contract && key.tokenID == tokenID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bidder < out[j].Bidder })
	return out, nil
}

func (s *BidStore) DeleteForToken(_ context.Context, contract string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.data {
		if key.contract == contract && key.tokenID == tokenID {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *BidStore) DeleteByBidder(_ context.Context, contract string, tokenID uint64, bidder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, bidKey{contract, tokenID, bidder})
	return nil
}

// ActivityStore is an in-memory storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	data map[txLogKey]model.ActivityEntry
}

func (s *ActivityStore) Upsert(_ context.Context, e *model.ActivityEntry) error {
	if e == nil || e.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[txLogKey{e.TxHash, e.LogIndex}] = *e
	return nil
}

func (s *ActivityStore) GetByTxLog(_ context.Context, txHash string, logIndex uint64) (*model.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[txLogKey{txHash, logIndex}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := e
	return &out, nil
}

func (s *ActivityStore) ByToken(_ context.Context, contract string, tokenID uint64) ([]model.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ActivityEntry, 0)
	for _, e := range s.data {
		if e.ContractAddress == contract && e.TokenID == tokenID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TxHash != out[j].TxHash {
			return out[i].TxHash < out[j].TxHash
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}

func (s *ActivityStore) DeleteForToken(_ context.Context, contract string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.data {
		if e.ContractAddress == contract && e.TokenID == tokenID {
			delete(s.data, key)
		}
	}
	return nil
}

// NotificationStore is an in-memory storage.NotificationStore.
type NotificationStore struct {
	mu   sync.RWMutex
	data map[txLogKey]model.Notification
}

func (s *NotificationStore) Upsert(_ context.Context, n *model.Notification) error {
	if n == nil || n.TxHash == "" || n.Recipient == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[txLogKey{n.TxHash, n.LogIndex}] = *n
	return nil
}

func (s *NotificationStore) ByRecipient(_ context.Context, recipient string) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Notification, 0)
	for _, n := range s.data {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TxHash != out[j].TxHash {
			return out[i].TxHash < out[j].TxHash
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}

func (s *NotificationStore) DeleteForToken(_ context.Context, contract string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, n := range s.data {
		if n.ContractAddress == contract && n.TokenID == tokenID {
			delete(s.data, key)
		}
	}
	return nil
}

// FavoriteStore is an in-memory storage.FavoriteStore.
type FavoriteStore struct {
	mu   sync.RWMutex
	data map[favoriteKey]model.Favorite
}

func (s *FavoriteStore) Add(_ context.Context, f *model.Favorite) error {
	if f == nil || f.ContractAddress == "" || f.UserAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[favoriteKey{f.ContractAddress, f.TokenID, f.UserAddress}] = *f
	return nil
}

func (s *FavoriteStore) DeleteForToken(_ context.Context, contract string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.data {
		if key.contract == contract && key.tokenID == tokenID {
			delete(s.data, key)
		}
	}
	return nil
}

// TransactionStore is an in-memory storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[txLogKey]model.TransactionRecord
}

func (s *TransactionStore) Upsert(_ context.Context, t *model.TransactionRecord) error {
	if t == nil || t.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[txLogKey{t.TxHash, t.LogIndex}] = *t
	return nil
}

func (s *TransactionStore) GetByTxLog(_ context.Context, txHash string, logIndex uint64) (*model.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[txLogKey{txHash, logIndex}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := t
	return &out, nil
}

func (s *TransactionStore) byContract(contract string) []model.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TransactionRecord, 0)
	for _, t := range s.data {
		if t.ContractAddress == contract {
			out = append(out, t)
		}
	}
	return out
}

// CollectionStore is an in-memory storage.CollectionStore. Stats are
// recomputed from the listing and transaction stores, matching the SQL
// implementation's recompute-from-source semantics.
type CollectionStore struct {
	mu           sync.RWMutex
	data         map[string]model.CollectionStats
	listings     *ListingStore
	transactions *TransactionStore
}

func (s *CollectionStore) Get(_ context.Context, contract string) (*model.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[contract]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *CollectionStore) RecomputeStats(_ context.Context, contract string) error {
	if contract == "" {
		return storage.ErrInvalidInput
	}

	floor := 0.0
	for _, l := range s.listings.byContract(contract) {
		if floor == 0 || l.PriceUSD < floor {
			floor = l.PriceUSD
		}
	}

	volume := 0.0
	for _, t := range s.transactions.byContract(contract) {
		volume += t.AmountUSD
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[contract] = model.CollectionStats{
		ContractAddress: contract,
		FloorUSD:        floor,
		VolumeUSD:       volume,
		UpdatedAt:       time.Now().UTC(),
	}
	return nil
}

// CurrencyStore is an in-memory storage.CurrencyStore.
type CurrencyStore struct {
	mu   sync.RWMutex
	data map[string]model.Currency
}

func (s *CurrencyStore) Get(_ context.Context, address string) (*model.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := c
	return &out, nil
}
