package nft

import (
	"strings"

	"marketScope/internal/model"
)

// ContractClass partitions contract addresses by the signature table that
// applies to their logs.
type ContractClass string

const (
	// ClassERC721 covers collection contracts; any address not configured
	// as a marketplace is treated as a collection.
	ClassERC721 ContractClass = "erc721"
	// ClassMarketplace covers the configured marketplace contracts.
	ClassMarketplace ContractClass = "marketplace"
)

// Registry maps (contract class, topic0) to an event kind. It is static:
// the tables are fixed at construction, so an unregistered kind can never
// reach dispatch.
type Registry struct {
	marketplaceAddrs  map[string]struct{}
	erc721Topics      map[string]model.EventKind
	marketplaceTopics map[string]model.EventKind
}

// NewRegistry builds the signature registry. Marketplace addresses select
// the marketplace table; all other emitters use the ERC-721 table.
func NewRegistry(marketplaceAddrs []string) (*Registry, error) {
	tokenABI, err := ERC721ABI()
	if err != nil {
		return nil, err
	}
	marketABI, err := MarketplaceABI()
	if err != nil {
		return nil, err
	}

	addrs := make(map[string]struct{}, len(marketplaceAddrs))
	for _, raw := range marketplaceAddrs {
		addr, err := NormalizeAddress(raw)
		if err != nil {
			return nil, err
		}
		addrs[addr] = struct{}{}
	}

	return &Registry{
		marketplaceAddrs: addrs,
		erc721Topics: map[string]model.EventKind{
			strings.ToLower(tokenABI.Events["Transfer"].ID.Hex()): model.KindTransfer,
		},
		marketplaceTopics: map[string]model.EventKind{
			strings.ToLower(marketABI.Events["Bought"].ID.Hex()):        model.KindBought,
			strings.ToLower(marketABI.Events["OfferAccepted"].ID.Hex()): model.KindOfferAccepted,
			strings.ToLower(marketABI.Events["PricesSet"].ID.Hex()):     model.KindPricesSet,
			strings.ToLower(marketABI.Events["PriceRemoved"].ID.Hex()):  model.KindPriceRemoved,
			strings.ToLower(marketABI.Events["Cloned"].ID.Hex()):        model.KindCloned,
		},
	}, nil
}

// Class returns the signature table that applies to a normalized address.
func (r *Registry) Class(address string) ContractClass {
	if _, ok := r.marketplaceAddrs[address]; ok {
		return ClassMarketplace
	}
	return ClassERC721
}

// Lookup resolves (address, topic0) to an event kind. The second return
// is false for unknown signatures, which callers skip silently.
func (r *Registry) Lookup(address, topic0 string) (model.EventKind, bool) {
	topic0 = strings.ToLower(topic0)
	switch r.Class(address) {
	case ClassMarketplace:
		kind, ok := r.marketplaceTopics[topic0]
		return kind, ok
	default:
		kind, ok := r.erc721Topics[topic0]
		return kind, ok
	}
}
