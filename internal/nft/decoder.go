package nft

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"marketScope/internal/model"
)

// Decoder turns raw webhook logs into ledger records using the static
// signature registry.
type Decoder struct {
	registry *Registry
	token    abi.ABI
	market   abi.ABI
}

// NewDecoder builds a decoder for the given marketplace contract addresses.
func NewDecoder(marketplaceAddrs []string) (*Decoder, error) {
	registry, err := NewRegistry(marketplaceAddrs)
	if err != nil {
		return nil, err
	}
	tokenABI, err := ERC721ABI()
	if err != nil {
		return nil, err
	}
	marketABI, err := MarketplaceABI()
	if err != nil {
		return nil, err
	}
	return &Decoder{registry: registry, token: tokenABI, market: marketABI}, nil
}

// Decode converts one raw log into a ledger record. The second return is
// false when the log's signature is not registered (caller skips it). A
// registered but malformed log is an error.
func (d *Decoder) Decode(header model.BlockHeader, log model.RawLog) (*model.LedgerRecord, bool, error) {
	if len(log.Topics) == 0 {
		return nil, false, fmt.Errorf("missing topics")
	}

	emitter, err := NormalizeAddress(log.Address)
	if err != nil {
		return nil, false, err
	}

	kind, ok := d.registry.Lookup(emitter, log.Topics[0])
	if !ok {
		return nil, false, nil
	}

	var payload interface{}
	switch kind {
	case model.KindTransfer:
		payload, err = d.decodeTransfer(emitter, log)
	case model.KindBought, model.KindOfferAccepted:
		payload, err = d.decodeSale(log)
	case model.KindPricesSet:
		payload, err = d.decodePricesSet(log)
	case model.KindPriceRemoved:
		payload, err = d.decodePriceRemoved(log)
	case model.KindCloned:
		payload, err = d.decodeClone(log)
	default:
		err = fmt.Errorf("unsupported event kind: %s", kind)
	}
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", kind, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}

	return &model.LedgerRecord{
		BlockNumber:     header.Number,
		TxHash:          strings.ToLower(log.TxHash),
		LogIndex:        log.LogIndex,
		ContractAddress: emitter,
		Kind:            kind,
		Payload:         raw,
		BlockTime:       time.Unix(int64(header.Timestamp), 0).UTC(),
	}, true, nil
}

func (d *Decoder) decodeTransfer(emitter string, log model.RawLog) (model.TransferEventData, error) {
	event := d.token.Events["Transfer"]
	topics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.TransferEventData{}, err
	}

	var indexed struct {
		From    common.Address
		To      common.Address
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.TransferEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	tokenID, err := uint64FromBig(indexed.TokenId)
	if err != nil {
		return model.TransferEventData{}, err
	}

	return model.TransferEventData{
		Nft:     emitter,
		From:    lowerHex(indexed.From),
		To:      lowerHex(indexed.To),
		TokenID: tokenID,
	}, nil
}

func (d *Decoder) decodeSale(log model.RawLog) (model.SaleEventData, error) {
	event := d.market.Events["Bought"]
	topics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.SaleEventData{}, err
	}

	var indexed struct {
		Nft    common.Address
		Seller common.Address
		Buyer  common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.SaleEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SaleEventData{}, err
	}
	if len(values) != 3 {
		return model.SaleEventData{}, fmt.Errorf("unexpected sale values: %d", len(values))
	}

	tokenBig, err := asBigInt(values[0])
	if err != nil {
		return model.SaleEventData{}, err
	}
	tokenID, err := uint64FromBig(tokenBig)
	if err != nil {
		return model.SaleEventData{}, err
	}
	currency, err := asAddress(values[1])
	if err != nil {
		return model.SaleEventData{}, err
	}
	amount, err := asBigInt(values[2])
	if err != nil {
		return model.SaleEventData{}, err
	}

	return model.SaleEventData{
		Nft:      lowerHex(indexed.Nft),
		Seller:   lowerHex(indexed.Seller),
		Buyer:    lowerHex(indexed.Buyer),
		TokenID:  tokenID,
		Currency: lowerHex(currency),
		Amount:   amount.String(),
	}, nil
}

func (d *Decoder) decodePricesSet(log model.RawLog) (model.PricesSetEventData, error) {
	event := d.market.Events["PricesSet"]
	topics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.PricesSetEventData{}, err
	}

	var indexed struct {
		Nft common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.PricesSetEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.PricesSetEventData{}, err
	}
	if len(values) != 3 {
		return model.PricesSetEventData{}, fmt.Errorf("unexpected prices-set values: %d", len(values))
	}

	rawIDs, ok := values[0].([]*big.Int)
	if !ok {
		return model.PricesSetEventData{}, fmt.Errorf("expected uint256[] token ids, got %T", values[0])
	}
	tokenIDs := make([]uint64, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uint64FromBig(raw)
		if err != nil {
			return model.PricesSetEventData{}, err
		}
		tokenIDs = append(tokenIDs, id)
	}

	price, err := asBigInt(values[1])
	if err != nil {
		return model.PricesSetEventData{}, err
	}
	currency, err := asAddress(values[2])
	if err != nil {
		return model.PricesSetEventData{}, err
	}

	return model.PricesSetEventData{
		Nft:      lowerHex(indexed.Nft),
		TokenIDs: tokenIDs,
		Price:    price.String(),
		Currency: lowerHex(currency),
	}, nil
}

func (d *Decoder) decodePriceRemoved(log model.RawLog) (model.PriceRemovedEventData, error) {
	event := d.market.Events["PriceRemoved"]
	topics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.PriceRemovedEventData{}, err
	}

	var indexed struct {
		Nft     common.Address
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.PriceRemovedEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	tokenID, err := uint64FromBig(indexed.TokenId)
	if err != nil {
		return model.PriceRemovedEventData{}, err
	}

	return model.PriceRemovedEventData{
		Nft:     lowerHex(indexed.Nft),
		TokenID: tokenID,
	}, nil
}

func (d *Decoder) decodeClone(log model.RawLog) (model.CloneEventData, error) {
	event := d.market.Events["Cloned"]
	topics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.CloneEventData{}, err
	}

	var indexed struct {
		Nft   common.Address
		Owner common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.CloneEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.CloneEventData{}, err
	}
	if len(values) != 2 {
		return model.CloneEventData{}, fmt.Errorf("unexpected clone values: %d", len(values))
	}

	originBig, err := asBigInt(values[0])
	if err != nil {
		return model.CloneEventData{}, err
	}
	origin, err := uint64FromBig(originBig)
	if err != nil {
		return model.CloneEventData{}, err
	}
	tokenBig, err := asBigInt(values[1])
	if err != nil {
		return model.CloneEventData{}, err
	}
	tokenID, err := uint64FromBig(tokenBig)
	if err != nil {
		return model.CloneEventData{}, err
	}

	return model.CloneEventData{
		Nft:           lowerHex(indexed.Nft),
		Owner:         lowerHex(indexed.Owner),
		OriginTokenID: origin,
		TokenID:       tokenID,
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	out, ok := value.(*big.Int)
	if !ok || out == nil {
		return nil, fmt.Errorf("expected big int, got %T", value)
	}
	return out, nil
}

func asAddress(value interface{}) (common.Address, error) {
	out, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("expected address, got %T", value)
	}
	return out, nil
}

func uint64FromBig(value *big.Int) (uint64, error) {
	if value == nil {
		return 0, fmt.Errorf("nil token id")
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("token id overflows uint64: %s", value)
	}
	return value.Uint64(), nil
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
