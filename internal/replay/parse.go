package replay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// ErrInvalidArgument marks operation fields that are missing or malformed.
var ErrInvalidArgument = errors.New("invalid argument")

func argError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// ParseAddress converts a hex address. An empty input is an error unless
// optional is set, in which case it reads as the zero address.
func ParseAddress(field, input string, optional bool) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		if optional {
			return common.Address{}, nil
		}
		return common.Address{}, argError("%s is required", field)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, argError("%s: %s", field, input)
	}
	return common.HexToAddress(input), nil
}

// ParseAmount converts a decimal or 0x-prefixed amount. Empty reads as zero.
func ParseAmount(field, input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(uint256.Int), nil
	}
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		v, err := uint256.FromHex(input)
		if err != nil {
			return nil, argError("%s: %v", field, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, argError("%s: %v", field, err)
	}
	return v, nil
}

// ParseHash converts a 32-byte hex identifier.
func ParseHash(field, input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, argError("%s: %s", field, input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, argError("%s length: %s", field, input)
	}
	return common.BytesToHash(data), nil
}
