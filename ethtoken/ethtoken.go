package ethtoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/setheum-labs/evmkit/ethcontract"
	"github.com/setheum-labs/evmkit/ethrpc"
	"github.com/setheum-labs/evmkit/ethrpc/jsonrpc"
	"github.com/setheum-labs/evmkit/util"
)

var ErrTransferReverted = errors.New("ethtoken: transfer reverted")

// SETMAddress is the ERC-20 predeploy of the native SETM token.
var SETMAddress = common.HexToAddress("0x0000000000000000000100000000000000000000")

// Backend is the node API a Token needs. *ethrpc.Provider satisfies it.
type Backend interface {
	ethcontract.ContractCaller
	SendTransaction(ctx context.Context, args ethrpc.TransactionArgs) (common.Hash, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// batcher is implemented by backends which can send several calls in one round trip.
type batcher interface {
	Do(ctx context.Context, calls ...ethrpc.Call) error
}

// Token is a client of an ERC-20 contract.
type Token struct {
	contract *ethcontract.Contract
	backend  Backend
	log      *slog.Logger
}

type Option func(*Token)

func WithLogger(log *slog.Logger) Option {
	return func(t *Token) {
		if log != nil {
			t.log = log
		}
	}
}

func NewToken(address common.Address, backend Backend, opts ...Option) *Token {
	t := &Token{
		contract: ethcontract.NewContractCaller(address, ethcontract.ERC20ABI, backend),
		backend:  backend,
		log:      util.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Token) Address() common.Address {
	return t.contract.Address()
}

func (t *Token) Name(ctx context.Context) (string, error) {
	return call[string](ctx, t, "name")
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	return call[string](ctx, t, "symbol")
}

func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	return call[uint8](ctx, t, "decimals")
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	return call[*big.Int](ctx, t, "totalSupply")
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return call[*big.Int](ctx, t, "balanceOf", account)
}

// Info is the token metadata.
type Info struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Decimals    uint8          `json:"decimals"`
	TotalSupply *big.Int       `json:"totalSupply"`
}

// Info reads the token metadata, in a single batch when the backend supports it.
func (t *Token) Info(ctx context.Context) (*Info, error) {
	info := &Info{Address: t.Address()}

	b, ok := t.backend.(batcher)
	if !ok {
		var err error
		if info.Name, err = t.Name(ctx); err != nil {
			return nil, err
		}
		if info.Symbol, err = t.Symbol(ctx); err != nil {
			return nil, err
		}
		if info.Decimals, err = t.Decimals(ctx); err != nil {
			return nil, err
		}
		if info.TotalSupply, err = t.TotalSupply(ctx); err != nil {
			return nil, err
		}
		return info, nil
	}

	methods := []string{"name", "symbol", "decimals", "totalSupply"}
	outputs := make([][]byte, len(methods))
	calls := make([]ethrpc.Call, len(methods))
	for i, method := range methods {
		calldata, err := t.contract.Encode(method)
		if err != nil {
			return nil, err
		}
		to := t.Address()
		calls[i] = ethrpc.CallContract(ethereum.CallMsg{To: &to, Data: calldata}, nil).Into(&outputs[i])
	}
	if err := b.Do(ctx, calls...); err != nil {
		return nil, fmt.Errorf("ethtoken: read token info: %w", err)
	}

	var err error
	if info.Name, err = unpack[string](t, "name", outputs[0]); err != nil {
		return nil, err
	}
	if info.Symbol, err = unpack[string](t, "symbol", outputs[1]); err != nil {
		return nil, err
	}
	if info.Decimals, err = unpack[uint8](t, "decimals", outputs[2]); err != nil {
		return nil, err
	}
	if info.TotalSupply, err = unpack[*big.Int](t, "totalSupply", outputs[3]); err != nil {
		return nil, err
	}
	return info, nil
}

// TransferCalldata returns the calldata of transfer(to, amount).
func (t *Token) TransferCalldata(to common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("ethtoken: invalid transfer amount %v", amount)
	}
	return t.contract.Encode("transfer", to, amount)
}

// SimulateTransfer runs the transfer as eth_call from the sender. A transfer the
// token would reject returns an error wrapping ErrTransferReverted.
func (t *Token) SimulateTransfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	calldata, err := t.TransferCalldata(to, amount)
	if err != nil {
		return err
	}
	contract := t.Address()
	output, err := t.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &contract, Data: calldata}, nil)
	if err != nil {
		return revertError(err)
	}

	// tokens which report failure instead of reverting
	if len(output) > 0 {
		ok, err := unpack[bool](t, "transfer", output)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: transfer returned false", ErrTransferReverted)
		}
	}
	return nil
}

// Transfer submits transfer(to, amount) with eth_sendTransaction, signed by the node
// for the from account, and returns the transaction hash.
func (t *Token) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error) {
	calldata, err := t.TransferCalldata(to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	contract := t.Address()
	txnHash, err := t.backend.SendTransaction(ctx, ethrpc.TransactionArgs{
		From: from,
		To:   &contract,
		Data: calldata,
	})
	if err != nil {
		return common.Hash{}, revertError(err)
	}

	t.log.Debug("ethtoken: transfer submitted",
		slog.String("token", contract.Hex()),
		slog.String("to", to.Hex()),
		slog.String("amount", amount.String()),
		slog.String("txn", txnHash.Hex()))

	return txnHash, nil
}

// WaitTransfer waits for the receipt of a transfer and returns the Transfer events
// it emitted. A failed transaction returns an error wrapping ErrTransferReverted.
func (t *Token) WaitTransfer(ctx context.Context, txnHash common.Hash) ([]TransferEvent, *types.Receipt, error) {
	receipt, err := ethrpc.WaitForTxnReceipt(ctx, t.backend, txnHash)
	if err != nil {
		return nil, nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, receipt, fmt.Errorf("%w: txn %s", ErrTransferReverted, txnHash.Hex())
	}
	events, err := t.TransferEvents(receipt)
	if err != nil {
		return nil, receipt, err
	}
	return events, receipt, nil
}

// TransferEvent is a decoded Transfer(from, to, value) log.
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// TransferEvents decodes the Transfer logs this token emitted in receipt.
func (t *Token) TransferEvents(receipt *types.Receipt) ([]TransferEvent, error) {
	var events []TransferEvent
	for _, log := range receipt.Logs {
		if log == nil {
			continue
		}
		var ev TransferEvent
		ok, err := t.contract.DecodeEvent("Transfer", *log, &ev)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func call[T any](ctx context.Context, t *Token, method string, args ...interface{}) (T, error) {
	var zero T
	calldata, err := t.contract.Encode(method, args...)
	if err != nil {
		return zero, err
	}
	to := t.Address()
	output, err := t.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata}, nil)
	if err != nil {
		return zero, fmt.Errorf("ethtoken: %s: %w", method, err)
	}
	return unpack[T](t, method, output)
}

func unpack[T any](t *Token, method string, output []byte) (T, error) {
	var zero T
	values, err := t.contract.Decode(method, output)
	if err != nil {
		return zero, fmt.Errorf("ethtoken: %w", err)
	}
	if len(values) != 1 {
		return zero, fmt.Errorf("ethtoken: %s: expected 1 return value, got %d", method, len(values))
	}
	v, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("ethtoken: %s: unexpected return type %T", method, values[0])
	}
	return v, nil
}

// revertError wraps node errors caused by an EVM revert with ErrTransferReverted,
// adding the revert reason when the node returned one.
func revertError(err error) error {
	var rpcErr jsonrpc.Error
	if !errors.As(err, &rpcErr) || !rpcErr.IsRevert() {
		return err
	}
	if data, ok := rpcErr.RevertData(); ok {
		if reason, uerr := abi.UnpackRevert(data); uerr == nil {
			return fmt.Errorf("%w: %s", ErrTransferReverted, reason)
		}
	}
	return fmt.Errorf("%w: %s", ErrTransferReverted, rpcErr.Message)
}
