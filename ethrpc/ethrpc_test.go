package ethrpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/setheum-labs/evmkit/ethrpc"
	"github.com/setheum-labs/evmkit/ethrpc/jsonrpc"
	"github.com/setheum-labs/evmkit/ethtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken   = common.HexToAddress("0x0000000000000000000100000000000000000000")
)

func testReceipt(txHash common.Hash, status string) map[string]any {
	return map[string]any{
		"type":              "0x0",
		"status":            status,
		"cumulativeGasUsed": "0x5208",
		"logsBloom":         hexutil.Encode(make([]byte, 256)),
		"logs":              []any{},
		"transactionHash":   txHash.Hex(),
		"contractAddress":   nil,
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x1",
		"blockHash":         common.HexToHash("0xb1").Hex(),
		"blockNumber":       "0x10",
		"transactionIndex":  "0x0",
	}
}

func TestProviderChainIDMemoized(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.HandleResult("eth_chainId", "0x253")

	provider := node.Provider(t)
	for i := 0; i < 3; i++ {
		chainID, err := provider.ChainID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(595), chainID.Int64())

		// callers can't change the memoized value
		chainID.SetInt64(1)
	}
	assert.Len(t, node.RequestsFor("eth_chainId"), 1)
}

func TestProviderWithoutLogger(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.HandleResult("eth_chainId", "0x253")

	// a nil logger keeps the discarding default
	for _, provider := range []*ethrpc.Provider{node.Provider(t), node.Provider(t, ethrpc.WithLogger(nil))} {
		chainID, err := provider.ChainID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(595), chainID.Int64())
	}
	assert.Len(t, node.RequestsFor("eth_chainId"), 2)
}

func TestProviderMethods(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.HandleResult("eth_blockNumber", "0x10")
	node.HandleResult("eth_getBalance", "0xde0b6b3a7640000")
	node.HandleResult("eth_getTransactionCount", "0x7")
	node.HandleResult("eth_getCode", "0x6080")
	node.HandleResult("eth_accounts", []string{testAccount.Hex()})

	provider := node.Provider(t)
	ctx := context.Background()

	blockNum, err := provider.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), blockNum)

	balance, err := provider.BalanceAt(ctx, testAccount, nil)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())

	nonce, err := provider.NonceAt(ctx, testAccount, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	nonce, err = provider.PendingNonceAt(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	code, err := provider.CodeAt(ctx, testToken, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, code)

	accounts, err := provider.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testAccount}, accounts)

	reqs := node.RequestsFor("eth_getTransactionCount")
	require.Len(t, reqs, 2)
	assert.JSONEq(t, `"0x5"`, string(reqs[0].Params[1]))
	assert.JSONEq(t, `"pending"`, string(reqs[1].Params[1]))
}

func TestProviderCallContract(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.Handle("eth_call", func(params []json.RawMessage) (any, error) {
		var arg struct {
			From common.Address `json:"from"`
			To   common.Address `json:"to"`
			Data hexutil.Bytes  `json:"data"`
		}
		if err := json.Unmarshal(params[0], &arg); err != nil {
			return nil, err
		}
		if arg.To != testToken {
			return nil, errors.New("unexpected callee")
		}
		return hexutil.Encode(arg.Data), nil
	})

	provider := node.Provider(t)
	out, err := provider.CallContract(context.Background(), ethereum.CallMsg{
		From: testAccount,
		To:   &testToken,
		Data: []byte{0x06, 0xfd, 0xde, 0x03},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 0xfd, 0xde, 0x03}, out)

	reqs := node.RequestsFor("eth_call")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `"latest"`, string(reqs[0].Params[1]))
}

func TestProviderRevert(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.HandleError("eth_call", jsonrpc.Error{Code: 3, Message: "execution reverted", Data: json.RawMessage(`"0x"`)})

	provider := node.Provider(t)
	_, err := provider.CallContract(context.Background(), ethereum.CallMsg{To: &testToken}, nil)
	require.Error(t, err)

	var rpcErr jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.True(t, rpcErr.IsRevert())
}

func TestProviderBatch(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.HandleResult("eth_chainId", "0x253")
	node.HandleResult("eth_blockNumber", "0x10")
	node.HandleError("eth_getBalance", jsonrpc.Error{Code: -32000, Message: "header not found"})

	provider := node.Provider(t)

	var (
		chainID  *big.Int
		blockNum uint64
		balance  *big.Int
	)
	err := provider.Do(context.Background(),
		ethrpc.ChainID().Into(&chainID),
		ethrpc.BlockNumber().Into(&blockNum),
		ethrpc.BalanceAt(testAccount, nil).Into(&balance),
	)
	require.Error(t, err)
	assert.Equal(t, 1, node.HTTPRequests())

	var batchErr ethrpc.BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Len(t, batchErr, 1)
	assert.Contains(t, batchErr.ErrorMap(), 2)

	assert.Equal(t, int64(595), chainID.Int64())
	assert.Equal(t, uint64(16), blockNum)
	assert.Nil(t, balance)
}

func TestProviderUnknownMethod(t *testing.T) {
	node := ethtest.NewMockNode(t)
	provider := node.Provider(t)

	err := provider.Do(context.Background(), ethrpc.NewCall("evm_mine"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-32601")
}

func TestProviderSendTransaction(t *testing.T) {
	txHash := common.HexToHash("0xabc1")

	node := ethtest.NewMockNode(t)
	node.Handle("eth_sendTransaction", func(params []json.RawMessage) (any, error) {
		var args ethrpc.TransactionArgs
		if err := json.Unmarshal(params[0], &args); err != nil {
			return nil, err
		}
		if args.From != testAccount || args.To == nil || *args.To != testToken {
			return nil, errors.New("bad args")
		}
		return txHash.Hex(), nil
	})

	receiptCalls := 0
	node.Handle("eth_getTransactionReceipt", func(params []json.RawMessage) (any, error) {
		receiptCalls++
		if receiptCalls < 2 {
			return nil, nil
		}
		return testReceipt(txHash, "0x1"), nil
	})

	var logBuf bytes.Buffer
	provider := node.Provider(t, ethrpc.WithLogger(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	ctx := context.Background()
	hash, err := provider.SendTransaction(ctx, ethrpc.TransactionArgs{
		From: testAccount,
		To:   &testToken,
		Data: []byte{0xa9, 0x05, 0x9c, 0xbb},
	})
	require.NoError(t, err)
	assert.Equal(t, txHash, hash)
	assert.Contains(t, logBuf.String(), "eth_sendTransaction")

	_, err = provider.TransactionReceipt(ctx, txHash)
	assert.ErrorIs(t, err, ethrpc.ErrNotFound)

	ethrpc.ReceiptPollInterval = 10 * time.Millisecond
	receipt, err := ethrpc.WaitForTxnReceipt(ctx, provider, txHash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, txHash, receipt.TxHash)
}

func TestWaitForTxnReceiptTimeout(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.HandleResult("eth_getTransactionReceipt", nil)

	ethrpc.ReceiptPollInterval = 10 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ethrpc.WaitForTxnReceipt(ctx, node.Provider(t), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProviderJWTAuthorization(t *testing.T) {
	node := ethtest.NewMockNode(t)
	node.HandleResult("eth_chainId", "0x1")

	_, err := ethrpc.NewProvider("")
	assert.Error(t, err)

	provider := node.Provider(t, ethrpc.WithJWTAuthorization("token"))
	_, err = provider.ChainID(context.Background())
	require.NoError(t, err)
}
