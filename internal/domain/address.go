package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress accepts a 0x-prefixed hex address in any letter case.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(s), nil
}
