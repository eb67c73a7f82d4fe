package ethcontract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractCaller runs read-only calls, *ethrpc.Provider satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *big.Int) ([]byte, error)
}

type Contract struct {
	address common.Address
	abi     abi.ABI
	caller  ContractCaller
}

func NewContractCaller(address common.Address, abi abi.ABI, caller ContractCaller) *Contract {
	return &Contract{
		address: address,
		abi:     abi,
		caller:  caller,
	}
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) ABI() abi.ABI {
	return c.abi
}

func (c *Contract) Encode(method string, args ...interface{}) ([]byte, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("contract method %s not found", method)
	}
	input, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("contract method %s: %w", method, err)
	}
	return append(append([]byte{}, m.ID...), input...), nil
}

// Decode unpacks the return data of method.
func (c *Contract) Decode(method string, output []byte) ([]interface{}, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("contract method %s not found", method)
	}
	if len(output) == 0 && len(m.Outputs) > 0 {
		return nil, fmt.Errorf("contract method %s: empty return data", method)
	}
	values, err := m.Outputs.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("contract method %s: %w", method, err)
	}
	return values, nil
}

// Call runs method as eth_call from the given account at the latest block.
func (c *Contract) Call(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error) {
	if c.caller == nil {
		return nil, fmt.Errorf("ethcontract: caller is not set")
	}
	calldata, err := c.Encode(method, args...)
	if err != nil {
		return nil, err
	}
	output, err := c.caller.CallContract(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.address,
		Data: calldata,
	}, nil)
	if err != nil {
		return nil, err
	}
	return c.Decode(method, output)
}

// DecodeEvent decodes log as the named event into out, a pointer to a struct
// whose fields are the event arguments in CamelCase. It returns false when the log
// was not emitted by this contract or is a different event.
func (c *Contract) DecodeEvent(name string, log types.Log, out interface{}) (bool, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return false, fmt.Errorf("contract event %s not found", name)
	}
	if log.Address != c.address || len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return false, nil
	}

	if len(log.Data) > 0 {
		if err := c.abi.UnpackIntoInterface(out, name, log.Data); err != nil {
			return false, fmt.Errorf("contract event %s: %w", name, err)
		}
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return false, fmt.Errorf("contract event %s: %w", name, err)
	}
	return true, nil
}
