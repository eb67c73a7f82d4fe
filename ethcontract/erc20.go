package ethcontract

import (
	_ "embed"
)

// ERC20ABIJSON is the standard EIP-20 interface, including the Transfer and
// Approval events.
//
//go:embed erc20.json
var ERC20ABIJSON string

var ERC20ABI = MustParseABI(ERC20ABIJSON)
