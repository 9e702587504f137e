package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names one decoded event shape. The set is closed: the decoder
// only produces these values, so an unknown kind at dispatch time is a
// schema error.
type EventKind string

const (
	KindTransfer      EventKind = "transfer"
	KindBought        EventKind = "bought"
	KindOfferAccepted EventKind = "offer_accepted"
	KindPricesSet     EventKind = "prices_set"
	KindPriceRemoved  EventKind = "price_removed"
	KindCloned        EventKind = "cloned"
)

// Valid reports whether the kind is a member of the closed enum.
func (k EventKind) Valid() bool {
	switch k {
	case KindTransfer, KindBought, KindOfferAccepted, KindPricesSet, KindPriceRemoved, KindCloned:
		return true
	}
	return false
}

// LedgerID is the natural identity of a chain log. Two deliveries of the
// same log always produce the same LedgerID.
type LedgerID struct {
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
}

func (id LedgerID) String() string {
	return fmt.Sprintf("%d:%s:%d", id.BlockNumber, id.TxHash, id.LogIndex)
}

// LedgerRecord is one immutable row of the event ledger. Rows are only
// ever inserted and flagged processed, never updated or deleted.
type LedgerRecord struct {
	BlockNumber     uint64          `json:"block_number"`
	TxHash          string          `json:"tx_hash"`
	LogIndex        uint64          `json:"log_index"`
	ContractAddress string          `json:"contract_address"`
	Kind            EventKind       `json:"kind"`
	Payload         json.RawMessage `json:"payload"`
	BlockTime       time.Time       `json:"block_time"`
	Processed       bool            `json:"processed"`
	IngestedAt      time.Time       `json:"ingested_at"`
}

// ID returns the record's natural key.
func (r LedgerRecord) ID() LedgerID {
	return LedgerID{BlockNumber: r.BlockNumber, TxHash: r.TxHash, LogIndex: r.LogIndex}
}
