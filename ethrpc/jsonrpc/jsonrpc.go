package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Message is either a JSONRPC request or response.
type Message struct {
	Version string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  []any           `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewRequest returns a new JSONRPC request Message.
func NewRequest(id uint64, method string, params []any) Message {
	if params == nil {
		params = []any{}
	}
	return Message{
		Version: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Error is a JSONRPC error returned from the node.
type Error struct {
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// ExecutionRevertedCode is the error code geth-compatible nodes use for a reverted
// eth_call or eth_estimateGas.
const ExecutionRevertedCode = 3

// IsRevert reports whether the node rejected a call because the EVM reverted.
func (e Error) IsRevert() bool {
	return e.Code == ExecutionRevertedCode || strings.Contains(strings.ToLower(e.Message), "revert")
}

// RevertData returns the revert payload carried in Data, if any.
func (e Error) RevertData() ([]byte, bool) {
	if len(e.Data) == 0 {
		return nil, false
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return nil, false
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, false
	}
	return b, true
}
