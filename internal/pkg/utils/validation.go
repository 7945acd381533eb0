package utils

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// IsValidAddress accepts 0x-prefixed 40-hex-character strings, in any letter case.
func IsValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// IsValidTxHash accepts 0x-prefixed 64-hex-character strings.
func IsValidTxHash(hash string) bool {
	return txHashPattern.MatchString(hash)
}

// ChecksumAddress returns the EIP-55 form of a valid address, or the input unchanged.
func ChecksumAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
