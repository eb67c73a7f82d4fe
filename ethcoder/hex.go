package ethcoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrInvalidHex = errors.New("ethcoder: invalid hex")

// HexEncode renders b as 0x-prefixed lower-case hex.
func HexEncode(b []byte) string {
	return hexutil.Encode(b)
}

// HexDecode decodes a 0x-prefixed hex string, surrounding whitespace is ignored.
// Errors wrap ErrInvalidHex and carry the offending input.
func HexDecode(h string) ([]byte, error) {
	b, err := hexutil.Decode(strings.TrimSpace(h))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidHex, h, err)
	}
	return b, nil
}
