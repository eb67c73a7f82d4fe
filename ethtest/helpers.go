package ethtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/setheum-labs/evmkit/ethrpc"
	"github.com/stretchr/testify/require"
)

var (
	sharedTestchainOnce sync.Once
	sharedTestchain     *Testchain
	sharedTestchainErr  error
)

// RequireTestchain returns the test chain configured through TestchainOptionsFromEnv,
// connecting once per test binary. Tests are skipped when no node is reachable.
func RequireTestchain(t testing.TB) *Testchain {
	t.Helper()
	sharedTestchainOnce.Do(func() {
		opts, err := TestchainOptionsFromEnv()
		if err != nil {
			sharedTestchainErr = err
			return
		}
		opts.ConnectAttempts = 2
		sharedTestchain, sharedTestchainErr = NewTestchain(opts)
	})
	if sharedTestchainErr != nil {
		t.Skipf("testchain unavailable: %v", sharedTestchainErr)
	}
	return sharedTestchain
}

// SendTransactionAndWaitForReceipt submits args with eth_sendTransaction and waits
// for the receipt, failing the test on any error.
func SendTransactionAndWaitForReceipt(t testing.TB, provider *ethrpc.Provider, args ethrpc.TransactionArgs) *types.Receipt {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	txnHash, err := provider.SendTransaction(ctx, args)
	require.NoError(t, err)

	receipt, err := ethrpc.WaitForTxnReceipt(ctx, provider, txnHash)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	return receipt
}
