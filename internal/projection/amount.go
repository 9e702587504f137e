package projection

import (
	"fmt"
	"math/big"
)

// displayAmount converts a raw on-chain integer amount into display units
// using the currency's decimal precision.
func displayAmount(raw string, decimals uint8) (float64, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return 0, fmt.Errorf("invalid amount: %s", raw)
	}
	if decimals == 0 {
		out, _ := new(big.Float).SetInt(value).Float64()
		return out, nil
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	out, _ := new(big.Rat).SetFrac(value, denom).Float64()
	return out, nil
}
