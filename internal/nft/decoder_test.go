package nft

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"marketScope/internal/model"
)

const (
	testCollection  = "0x1111111111111111111111111111111111111111"
	testMarketplace = "0x2222222222222222222222222222222222222222"
	testCurrency    = "0x3333333333333333333333333333333333333333"
	addrA           = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB           = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	decoder, err := NewDecoder([]string{testMarketplace})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	return decoder
}

func addressTopic(addr string) string {
	return common.BytesToHash(common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32)).Hex()
}

func uintTopic(v uint64) string {
	return common.BigToHash(new(big.Int).SetUint64(v)).Hex()
}

func transferLog(t *testing.T, from, to string, tokenID uint64, logIndex uint64) model.RawLog {
	t.Helper()
	tokenABI, err := ERC721ABI()
	if err != nil {
		t.Fatalf("erc721 abi: %v", err)
	}
	return model.RawLog{
		Address: testCollection,
		Topics: []string{
			tokenABI.Events["Transfer"].ID.Hex(),
			addressTopic(from),
			addressTopic(to),
			uintTopic(tokenID),
		},
		Data:     "0x",
		TxHash:   "0xdeadbeef",
		LogIndex: logIndex,
	}
}

func boughtLog(t *testing.T, seller, buyer string, tokenID uint64, amount *big.Int, logIndex uint64) model.RawLog {
	t.Helper()
	marketABI, err := MarketplaceABI()
	if err != nil {
		t.Fatalf("marketplace abi: %v", err)
	}
	event := marketABI.Events["Bought"]
	data, err := event.Inputs.NonIndexed().Pack(
		new(big.Int).SetUint64(tokenID),
		common.HexToAddress(testCurrency),
		amount,
	)
	if err != nil {
		t.Fatalf("pack bought data: %v", err)
	}
	return model.RawLog{
		Address: testMarketplace,
		Topics: []string{
			event.ID.Hex(),
			addressTopic(testCollection),
			addressTopic(seller),
			addressTopic(buyer),
		},
		Data:     hexutil.Encode(data),
		TxHash:   "0xdeadbeef",
		LogIndex: logIndex,
	}
}

func TestDecodeTransfer(t *testing.T) {
	decoder := newTestDecoder(t)
	header := model.BlockHeader{Number: 100, Hash: "0xblock", Timestamp: 1700000000}

	record, ok, err := decoder.Decode(header, transferLog(t, addrA, addrB, 7, 0))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected transfer to decode")
	}
	if record.Kind != model.KindTransfer {
		t.Fatalf("kind mismatch: %s", record.Kind)
	}
	if record.BlockNumber != 100 || record.LogIndex != 0 {
		t.Fatalf("identity mismatch: %+v", record.ID())
	}
	if record.Processed {
		t.Fatalf("new record must be unprocessed")
	}

	var data model.TransferEventData
	if err := json.Unmarshal(record.Payload, &data); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if data.From != addrA || data.To != addrB || data.TokenID != 7 {
		t.Fatalf("payload mismatch: %+v", data)
	}
	if data.Nft != testCollection {
		t.Fatalf("collection mismatch: %s", data.Nft)
	}
}

func TestDecodeBought(t *testing.T) {
	decoder := newTestDecoder(t)
	header := model.BlockHeader{Number: 100, Timestamp: 1700000000}
	amount, _ := new(big.Int).SetString("1000000000000000000", 10)

	record, ok, err := decoder.Decode(header, boughtLog(t, addrA, addrB, 7, amount, 1))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected bought to decode")
	}
	if record.Kind != model.KindBought {
		t.Fatalf("kind mismatch: %s", record.Kind)
	}

	var data model.SaleEventData
	if err := json.Unmarshal(record.Payload, &data); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if data.Seller != addrA || data.Buyer != addrB || data.TokenID != 7 {
		t.Fatalf("payload mismatch: %+v", data)
	}
	if data.Amount != "1000000000000000000" {
		t.Fatalf("amount mismatch: %s", data.Amount)
	}
	if data.Currency != testCurrency {
		t.Fatalf("currency mismatch: %s", data.Currency)
	}
	if data.Nft != testCollection {
		t.Fatalf("collection mismatch: %s", data.Nft)
	}
}

func TestDecodePricesSet(t *testing.T) {
	decoder := newTestDecoder(t)
	marketABI, err := MarketplaceABI()
	if err != nil {
		t.Fatalf("marketplace abi: %v", err)
	}
	event := marketABI.Events["PricesSet"]
	data, err := event.Inputs.NonIndexed().Pack(
		[]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
		big.NewInt(5000),
		common.HexToAddress(testCurrency),
	)
	if err != nil {
		t.Fatalf("pack data: %v", err)
	}

	record, ok, err := decoder.Decode(model.BlockHeader{Number: 10}, model.RawLog{
		Address:  testMarketplace,
		Topics:   []string{event.ID.Hex(), addressTopic(testCollection)},
		Data:     hexutil.Encode(data),
		TxHash:   "0xfeed",
		LogIndex: 3,
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !ok || record.Kind != model.KindPricesSet {
		t.Fatalf("expected prices_set, got ok=%v kind=%s", ok, record.Kind)
	}

	var payload model.PricesSetEventData
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(payload.TokenIDs) != 3 || payload.TokenIDs[0] != 1 || payload.TokenIDs[2] != 3 {
		t.Fatalf("token ids mismatch: %+v", payload.TokenIDs)
	}
	if payload.Price != "5000" {
		t.Fatalf("price mismatch: %s", payload.Price)
	}
}

func TestDecodeUnknownSignatureSkipped(t *testing.T) {
	decoder := newTestDecoder(t)

	_, ok, err := decoder.Decode(model.BlockHeader{Number: 1}, model.RawLog{
		Address:  testCollection,
		Topics:   []string{"0x00000000000000000000000000000000000000000000000000000000deadbeef"},
		Data:     "0x",
		TxHash:   "0xabc",
		LogIndex: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("unknown signature must be skipped, not decoded")
	}
}

func TestDecodeMarketplaceEventFromCollectionSkipped(t *testing.T) {
	decoder := newTestDecoder(t)
	log := boughtLog(t, addrA, addrB, 7, big.NewInt(1), 1)
	// Emitted by a collection contract, the marketplace signature table
	// does not apply.
	log.Address = testCollection

	_, ok, err := decoder.Decode(model.BlockHeader{Number: 1}, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("marketplace event from a collection address must be skipped")
	}
}

func TestDecodeMalformedTransfer(t *testing.T) {
	decoder := newTestDecoder(t)
	log := transferLog(t, addrA, addrB, 7, 0)
	log.Topics = log.Topics[:2] // missing required topics

	_, _, err := decoder.Decode(model.BlockHeader{Number: 1}, log)
	if err == nil {
		t.Fatalf("expected error for missing topics")
	}
}

func TestDecodeNoTopics(t *testing.T) {
	decoder := newTestDecoder(t)
	_, _, err := decoder.Decode(model.BlockHeader{Number: 1}, model.RawLog{Address: testCollection})
	if err == nil {
		t.Fatalf("expected error for empty topics")
	}
}
