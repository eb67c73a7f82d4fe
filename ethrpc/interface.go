package ethrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Interface is the subset of the Ethereum JSON-RPC API used by evmkit:
// https://ethereum.org/en/developers/docs/apis/json-rpc/
type Interface interface {
	// ChainID = eth_chainId
	ChainID(ctx context.Context) (*big.Int, error)

	// BlockNumber = eth_blockNumber
	BlockNumber(ctx context.Context) (uint64, error)

	// BalanceAt = eth_getBalance
	BalanceAt(ctx context.Context, account common.Address, blockNum *big.Int) (*big.Int, error)

	// CodeAt = eth_getCode
	CodeAt(ctx context.Context, account common.Address, blockNum *big.Int) ([]byte, error)

	// NonceAt = eth_getTransactionCount
	NonceAt(ctx context.Context, account common.Address, blockNum *big.Int) (uint64, error)

	// PendingNonceAt = eth_getTransactionCount with "pending" block
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// CallContract = eth_call
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *big.Int) ([]byte, error)

	// Accounts = eth_accounts
	Accounts(ctx context.Context) ([]common.Address, error)

	// SendTransaction = eth_sendTransaction
	SendTransaction(ctx context.Context, args TransactionArgs) (common.Hash, error)

	// TransactionReceipt = eth_getTransactionReceipt
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ReceiptReader is satisfied by anything that can look up transaction receipts.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}
