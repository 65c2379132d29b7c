package utils

import (
	"fmt"
	"math/big"
)

// ParseAmount parses a non-negative decimal amount string. Amounts are
// persisted as strings to cover the uint256 range.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", s)
	}
	return v, nil
}

// MustParseAmount parses a stored amount column. Stored values were
// validated on the way in, so a parse failure means a corrupted row.
func MustParseAmount(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("corrupted stored amount: %q", s))
	}
	return v
}

// FormatAmount renders an amount for storage.
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// MinBig returns the smaller of a or b.
func MinBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}
