package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/setheum-labs/evmkit/util"
)

type Provider struct {
	log        *slog.Logger
	nodeURL    string
	httpClient httpClient
	jwtToken   string

	chainIDMu sync.Mutex
	chainID   *big.Int

	lastID uint64
}

func NewProvider(nodeURL string, options ...Option) (*Provider, error) {
	if nodeURL == "" {
		return nil, fmt.Errorf("ethrpc: node url is required")
	}
	p := &Provider{
		log:        util.NopLogger(),
		nodeURL:    nodeURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

var (
	ErrNotFound      = ethereum.NotFound
	ErrEmptyResponse = errors.New("ethrpc: empty response")
)

var _ Interface = (*Provider)(nil)

func (p *Provider) NodeURL() string {
	return p.nodeURL
}

// Do sends calls to the node as a single JSON-RPC batch. Per-call failures are
// returned together as a BatchError.
func (p *Provider) Do(ctx context.Context, calls ...Call) error {
	if len(calls) == 0 {
		return nil
	}

	batch := make(BatchCall, 0, len(calls))
	for i := range calls {
		call := calls[i]
		if call.err != nil {
			return fmt.Errorf("ethrpc: call %d has an error: %w", i, call.err)
		}
		call.request.ID = atomic.AddUint64(&p.lastID, 1)
		batch = append(batch, &call)
	}

	b, err := batch.MarshalJSON()
	if err != nil {
		return fmt.Errorf("ethrpc: failed to marshal JSONRPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.nodeURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("ethrpc: failed to initialize http.Request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.jwtToken != "" {
		req.Header.Set("Authorization", "BEARER "+p.jwtToken)
	}

	p.log.Debug("ethrpc: sending batch", slog.Int("calls", len(batch)), slog.String("method", batch[0].request.Method))

	res, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ethrpc: failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("ethrpc: failed to read response: %w", err)
	}
	if res.StatusCode != http.StatusOK && len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("ethrpc: node responded with http status %d", res.StatusCode)
	}

	if err := json.Unmarshal(body, &batch); err != nil {
		return fmt.Errorf("ethrpc: failed to unmarshal response (http status %d): %w", res.StatusCode, err)
	}

	for _, call := range batch {
		if call.err != nil {
			continue
		}
		if call.response == nil {
			call.err = ErrEmptyResponse
			continue
		}
		if call.resultFn == nil {
			// expecting no result, so we skip
			continue
		}
		if err := call.resultFn(call.response.Result); err != nil {
			call.err = err
		}
	}

	if err := batch.ErrorOrNil(); err != nil {
		p.log.Debug("ethrpc: batch failed", slog.Any("err", err))
		return err
	}
	return nil
}

// ChainID returns the chain id of the node. The value is memoized after the
// first successful call.
func (p *Provider) ChainID(ctx context.Context) (*big.Int, error) {
	p.chainIDMu.Lock()
	defer p.chainIDMu.Unlock()

	if p.chainID != nil {
		return new(big.Int).Set(p.chainID), nil
	}
	var ret *big.Int
	if err := p.Do(ctx, ChainID().Into(&ret)); err != nil {
		return nil, err
	}
	p.chainID = ret
	return new(big.Int).Set(ret), nil
}

func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	var ret uint64
	err := p.Do(ctx, BlockNumber().Into(&ret))
	return ret, err
}

func (p *Provider) BalanceAt(ctx context.Context, account common.Address, blockNum *big.Int) (*big.Int, error) {
	var ret *big.Int
	err := p.Do(ctx, BalanceAt(account, blockNum).Into(&ret))
	return ret, err
}

func (p *Provider) CodeAt(ctx context.Context, account common.Address, blockNum *big.Int) ([]byte, error) {
	var result []byte
	err := p.Do(ctx, CodeAt(account, blockNum).Into(&result))
	return result, err
}

func (p *Provider) NonceAt(ctx context.Context, account common.Address, blockNum *big.Int) (uint64, error) {
	var result uint64
	err := p.Do(ctx, NonceAt(account, blockNum).Into(&result))
	return result, err
}

func (p *Provider) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var result uint64
	err := p.Do(ctx, PendingNonceAt(account).Into(&result))
	return result, err
}

func (p *Provider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *big.Int) ([]byte, error) {
	var result []byte
	err := p.Do(ctx, CallContract(msg, blockNum).Into(&result))
	return result, err
}

func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.Do(ctx, Accounts().Into(&accounts))
	return accounts, err
}

// SendTransaction submits an unsigned transaction with eth_sendTransaction. The node
// signs it with one of its managed accounts.
func (p *Provider) SendTransaction(ctx context.Context, args TransactionArgs) (common.Hash, error) {
	var txnHash common.Hash
	err := p.Do(ctx, SendTransaction(args).Into(&txnHash))
	return txnHash, err
}

func (p *Provider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := p.Do(ctx, TransactionReceipt(txHash).Into(&receipt))
	if err == nil && receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, err
}
