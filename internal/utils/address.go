package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress validates and canonicalizes an account address to
// lowercase 0x-prefixed form. All keys in the accounts table use this form.
func NormalizeAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", fmt.Errorf("empty address")
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), "0x") {
		trimmed = "0x" + trimmed
	}
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("invalid address format: %s", address)
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}

// IsValidAddress reports whether address normalizes cleanly.
func IsValidAddress(address string) bool {
	_, err := NormalizeAddress(address)
	return err == nil
}
