package web3

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point scale of the payout stablecoin.
const TokenDecimals = 6

// ToBaseUnits converts a human amount into the token's integer units.
// Digits beyond the sixth decimal are truncated.
func ToBaseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(TokenDecimals).Truncate(0).BigInt()
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -TokenDecimals)
}

// BasisPoints expresses a percentage such as 12.5 as 1250.
func BasisPoints(percent float64) *big.Int {
	return decimal.NewFromFloat(percent).Shift(2).Round(0).BigInt()
}

// SameAddress compares two hex addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// IsTxHash reports whether s looks like a 0x-prefixed 32-byte hash.
func IsTxHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
