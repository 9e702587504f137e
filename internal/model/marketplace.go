package model

import "time"

// Activity feed event names.
const (
	ActivityTransfer     = "transfer"
	ActivitySale         = "sale"
	ActivityPriceRemoved = "price_removed"
	ActivityClone        = "clone"
)

// Notification types.
const (
	NotificationSold          = "sold"
	NotificationOfferAccepted = "offer_accepted"
)

// User is a marketplace participant. Address is the primary key and is
// always stored lower-cased.
type User struct {
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// NFT is one token of a collection, keyed by (ContractAddress, TokenID).
type NFT struct {
	ContractAddress string    `json:"contract_address"`
	TokenID         uint64    `json:"token_id"`
	Owner           string    `json:"owner"`
	Name            string    `json:"name"`
	TokenURI        string    `json:"token_uri"`
	Minted          bool      `json:"minted"`
	MintTxHash      string    `json:"mint_tx_hash"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Listing is a token's active ask, at most one per token.
type Listing struct {
	ContractAddress string    `json:"contract_address"`
	TokenID         uint64    `json:"token_id"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency"`
	PriceUSD        float64   `json:"price_usd"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Bid is an open offer on a token.
type Bid struct {
	ContractAddress string    `json:"contract_address"`
	TokenID         uint64    `json:"token_id"`
	Bidder          string    `json:"bidder"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
}

// ActivityEntry is one activity feed row, keyed by (TxHash, LogIndex) so
// replays overwrite rather than duplicate.
type ActivityEntry struct {
	TxHash          string    `json:"tx_hash"`
	LogIndex        uint64    `json:"log_index"`
	ContractAddress string    `json:"contract_address"`
	TokenID         uint64    `json:"token_id"`
	Event           string    `json:"event"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Time            time.Time `json:"time"`
}

// Notification targets a single recipient, keyed by (TxHash, LogIndex).
type Notification struct {
	TxHash          string    `json:"tx_hash"`
	LogIndex        uint64    `json:"log_index"`
	Recipient       string    `json:"recipient"`
	Type            string    `json:"type"`
	ContractAddress string    `json:"contract_address"`
	TokenID         uint64    `json:"token_id"`
	Time            time.Time `json:"time"`
}

// TransactionRecord is one settled sale, keyed by (TxHash, LogIndex).
type TransactionRecord struct {
	TxHash          string    `json:"tx_hash"`
	LogIndex        uint64    `json:"log_index"`
	ContractAddress string    `json:"contract_address"`
	TokenID         uint64    `json:"token_id"`
	Seller          string    `json:"seller"`
	Buyer           string    `json:"buyer"`
	Amount          float64   `json:"amount"`
	AmountUSD       float64   `json:"amount_usd"`
	Currency        string    `json:"currency"`
	Time            time.Time `json:"time"`
}

// CollectionStats holds derived per-collection aggregates. Floor and volume
// are recomputed from the current listing and transaction sets, never
// incrementally patched.
type CollectionStats struct {
	ContractAddress string    `json:"contract_address"`
	FloorUSD        float64   `json:"floor_usd"`
	VolumeUSD       float64   `json:"volume_usd"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Favorite marks a user's bookmarked token. Written by the presentation
// layer; this system only cascade-deletes them on burn.
type Favorite struct {
	ContractAddress string `json:"contract_address"`
	TokenID         uint64 `json:"token_id"`
	UserAddress     string `json:"user_address"`
}

// Currency is read-only collaborator data mapping a payment token address
// to its precision and current USD price snapshot.
type Currency struct {
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol"`
	Decimals uint8   `json:"decimals"`
	USDPrice float64 `json:"usd_price"`
}
