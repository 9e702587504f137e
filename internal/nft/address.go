package nft

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the null address used for mints and burns.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// DeadAddress is the conventional burn sink.
const DeadAddress = "0x000000000000000000000000000000000000dead"

// NormalizeAddress validates a hex address and returns its canonical
// lower-cased form. Addresses are case-insensitive on chain; normalizing
// once at the boundary keeps every later comparison a plain string match.
func NormalizeAddress(input string) (string, error) {
	if !common.IsHexAddress(input) {
		return "", fmt.Errorf("invalid address: %s", input)
	}
	return strings.ToLower(common.HexToAddress(input).Hex()), nil
}

// IsBurnAddress reports whether a normalized address is a terminal sink.
func IsBurnAddress(addr string) bool {
	return addr == ZeroAddress || addr == DeadAddress
}
