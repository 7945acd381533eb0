package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// WeiDecimals is the number of decimals of ETH and most EVM native assets.
const WeiDecimals = 18

// ToDecimal converts an integer amount in the smallest unit to a decimal with the given decimals.
// Example: amount=1234500000000000000, decimals=18 => 1.2345
func ToDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// WeiToEther converts wei to ether.
func WeiToEther(wei *big.Int) decimal.Decimal {
	return ToDecimal(wei, WeiDecimals)
}

// FormatBigInt converts a big.Int value to a human-readable string,
// considering the given number of decimals. Trailing zeros are dropped.
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	if decimals == 0 {
		return amount.String()
	}
	return ToDecimal(amount, int32(decimals)).String()
}

// ParseBigInt parses a base-10 integer string as returned by the explorer's account endpoints.
// An empty string is zero.
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}
