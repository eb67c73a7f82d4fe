package ethtest

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/setheum-labs/evmkit/ethrpc"
	"github.com/setheum-labs/evmkit/ethtoken"
	"github.com/setheum-labs/evmkit/util"
)

// SETMTokenAddress is the token exercised by default.
var SETMTokenAddress = ethtoken.SETMAddress

type Testchain struct {
	options TestchainOptions

	chainID  *big.Int         // chainID determined by the test chain
	Provider *ethrpc.Provider // provider rpc to the test chain
}

type TestchainOptions struct {
	NodeURL string

	// JWTToken is sent as a bearer token when set.
	JWTToken string

	// TokenAddress is the ERC-20 contract exercised by token tests.
	TokenAddress common.Address

	// ConnectAttempts is how many times the node is asked for its chain id, one
	// second apart, before giving up.
	ConnectAttempts int
}

var DefaultTestchainOptions = TestchainOptions{
	NodeURL:         "http://localhost:8545",
	TokenAddress:    SETMTokenAddress,
	ConnectAttempts: 6,
}

// TestchainOptionsFromEnv returns DefaultTestchainOptions overridden by the
// evmkit-test.json file at the repository root, and then by EVMKIT_TESTCHAIN_URL,
// EVMKIT_TESTCHAIN_TOKEN and EVMKIT_TOKEN_ADDRESS.
func TestchainOptionsFromEnv() (TestchainOptions, error) {
	opts := DefaultTestchainOptions

	testConfig, err := util.ReadTestConfig(testConfigFile())
	if err != nil {
		return opts, err
	}

	lookup := func(key string) string {
		if v := os.Getenv("EVMKIT_" + key); v != "" {
			return v
		}
		return testConfig[key]
	}

	if v := lookup("TESTCHAIN_URL"); v != "" {
		opts.NodeURL = v
	}
	if v := lookup("TESTCHAIN_TOKEN"); v != "" {
		opts.JWTToken = v
	}
	if v := lookup("TOKEN_ADDRESS"); v != "" {
		if !common.IsHexAddress(v) {
			return opts, fmt.Errorf("ethtest: invalid token address %q", v)
		}
		opts.TokenAddress = common.HexToAddress(v)
	}
	return opts, nil
}

func testConfigFile() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "evmkit-test.json")
}

func NewTestchain(opts ...TestchainOptions) (*Testchain, error) {
	var err error
	tc := &Testchain{}

	// set options
	if len(opts) > 0 {
		tc.options = opts[0]
	} else {
		tc.options, err = TestchainOptionsFromEnv()
		if err != nil {
			return nil, err
		}
	}
	if tc.options.ConnectAttempts <= 0 {
		tc.options.ConnectAttempts = 1
	}

	// provider
	var providerOpts []ethrpc.Option
	if tc.options.JWTToken != "" {
		providerOpts = append(providerOpts, ethrpc.WithJWTAuthorization(tc.options.JWTToken))
	}
	tc.Provider, err = ethrpc.NewProvider(tc.options.NodeURL, providerOpts...)
	if err != nil {
		return nil, err
	}

	// connect to the test-chain or error out if fail to communicate
	if err := tc.connect(); err != nil {
		return nil, err
	}

	return tc, nil
}

func (c *Testchain) connect() error {
	var lastErr error
	for i := 0; i < c.options.ConnectAttempts; i++ {
		if i > 0 {
			time.Sleep(1 * time.Second)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		chainID, err := c.Provider.ChainID(ctx)
		cancel()
		if err != nil || chainID == nil {
			lastErr = err
			continue
		}
		c.chainID = chainID
		return nil
	}
	return fmt.Errorf("ethtest: unable to connect to testchain at %s: %v", c.options.NodeURL, lastErr)
}

func (c *Testchain) ChainID() *big.Int {
	return c.chainID
}

func (c *Testchain) Options() TestchainOptions {
	return c.options
}

func (c *Testchain) TokenAddress() common.Address {
	return c.options.TokenAddress
}

// Accounts returns the accounts managed by the node, which it signs for in
// eth_sendTransaction.
func (c *Testchain) Accounts(ctx context.Context) ([]common.Address, error) {
	accounts, err := c.Provider.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("ethtest: node has no unlocked accounts")
	}
	return accounts, nil
}

// FundAddress sends native currency from the first node account to addr and
// waits for the transfer to be mined.
func (c *Testchain) FundAddress(ctx context.Context, addr common.Address, amount *big.Int) error {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return err
	}

	txnHash, err := c.Provider.SendTransaction(ctx, ethrpc.TransactionArgs{
		From:  accounts[0],
		To:    &addr,
		Value: (*hexutil.Big)(amount),
	})
	if err != nil {
		return fmt.Errorf("ethtest: fund %s: %w", addr, err)
	}

	receipt, err := c.WaitMined(ctx, txnHash)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("ethtest: fund %s: txn %s failed", addr, txnHash)
	}
	return nil
}

func (c *Testchain) WaitMined(ctx context.Context, txn common.Hash) (*types.Receipt, error) {
	return ethrpc.WaitForTxnReceipt(ctx, c.Provider, txn)
}
