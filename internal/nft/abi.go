package nft

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc721ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

const marketplaceABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "nft", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "seller", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "buyer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "currency", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Bought",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "nft", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "seller", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "buyer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "currency", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "OfferAccepted",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "nft", "type": "address"},
      {"indexed": false, "internalType": "uint256[]", "name": "tokenIds", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256", "name": "price", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "currency", "type": "address"}
    ],
    "name": "PricesSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "nft", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "PriceRemoved",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "nft", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "originTokenId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "Cloned",
    "type": "event"
  }
]`

var (
	erc721ABI     abi.ABI
	erc721ABIOnce sync.Once
	erc721ABIErr  error

	marketplaceABI     abi.ABI
	marketplaceABIOnce sync.Once
	marketplaceABIErr  error
)

// ERC721ABI returns the parsed ERC-721 event ABI.
func ERC721ABI() (abi.ABI, error) {
	erc721ABIOnce.Do(func() {
		erc721ABI, erc721ABIErr = abi.JSON(strings.NewReader(erc721ABIJSON))
	})
	return erc721ABI, erc721ABIErr
}

// MarketplaceABI returns the parsed marketplace contract ABI.
func MarketplaceABI() (abi.ABI, error) {
	marketplaceABIOnce.Do(func() {
		marketplaceABI, marketplaceABIErr = abi.JSON(strings.NewReader(marketplaceABIJSON))
	})
	return marketplaceABI, marketplaceABIErr
}
