package contentcoin

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress validates a hex account or contract address and returns
// it lower-cased.
func NormalizeAddress(field, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", &ValidationError{Field: field, Reason: "is required"}
	}
	if !common.IsHexAddress(address) {
		return "", &ValidationError{Field: field, Reason: "not a hex address"}
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// SameWallet compares two wallets case-insensitively.
func SameWallet(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
