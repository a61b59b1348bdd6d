package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for anything that is not a 0x-prefixed
// 40-hex-digit EVM address.
var ErrInvalidAddress = errors.New("invalid Ethereum address: must be 42 characters and start with 0x")

// ValidateAddress checks the 42-character 0x-hex shape. Mixed case is accepted
// without verifying the EIP-55 checksum.
func ValidateAddress(addr string) error {
	if len(addr) != 2+2*common.AddressLength || !strings.HasPrefix(addr, "0x") {
		return ErrInvalidAddress
	}
	if !common.IsHexAddress(addr) {
		return ErrInvalidAddress
	}
	return nil
}

// ChecksumAddress validates addr and returns its EIP-55 form.
func ChecksumAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return common.HexToAddress(addr).Hex(), nil
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
