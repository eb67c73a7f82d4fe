package ethrpc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/setheum-labs/evmkit/ethrpc/jsonrpc"
)

// BatchCall is the set of calls sent in a single HTTP request. A batch of one is
// sent as a plain JSON-RPC object.
type BatchCall []*Call

func (b *BatchCall) MarshalJSON() ([]byte, error) {
	if len(*b) == 1 {
		return json.Marshal((*b)[0].request)
	}
	reqBody := make([]jsonrpc.Message, len(*b))
	for i, r := range *b {
		reqBody[i] = r.request
	}
	return json.Marshal(reqBody)
}

// UnmarshalJSON matches responses to their calls by id, nodes may answer a batch
// out of order.
func (b *BatchCall) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return fmt.Errorf("failed to unmarshal batch response: empty body")
	}

	var results []*jsonrpc.Message
	if data[0] == '[' {
		if err := json.Unmarshal(data, &results); err != nil {
			return fmt.Errorf("failed to unmarshal batch response: %w", err)
		}
	} else {
		var msg jsonrpc.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal batch response: %w", err)
		}

		// a request-level error, ie. a malformed batch, comes back without an id
		if msg.Error != nil && msg.ID == 0 {
			for _, call := range *b {
				call.err = *msg.Error
			}
			return nil
		}
		results = []*jsonrpc.Message{&msg}
	}
	if len(results) == 0 {
		return fmt.Errorf("failed to unmarshal batch response: empty result set")
	}

	callByID := make(map[uint64]*Call, len(*b))
	for i, call := range *b {
		if call == nil {
			return fmt.Errorf("nil call at index %d", i)
		}
		id := call.request.ID
		if _, exists := callByID[id]; exists {
			return fmt.Errorf("duplicate request id %d", id)
		}
		callByID[id] = call
	}

	for i, msg := range results {
		if msg == nil {
			return fmt.Errorf("nil response at index %d", i)
		}
		call, ok := callByID[msg.ID]
		if !ok {
			return fmt.Errorf("response id %d does not match any request", msg.ID)
		}
		if call.response != nil {
			return fmt.Errorf("duplicate response for id %d", msg.ID)
		}
		call.response = msg
		if msg.Error != nil {
			call.err = *msg.Error
		}
	}
	return nil
}

func (b *BatchCall) ErrorOrNil() error {
	err := make(BatchError)
	for i, r := range *b {
		if r.err != nil {
			err[i] = r
		}
	}
	if len(err) > 0 {
		return err
	}
	return nil
}

// BatchError holds the failed calls of a batch, keyed by their position.
type BatchError map[int]*Call

func (e BatchError) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e.Unwrap().Error()
	}
	msgs := make([]string, 0, len(e))
	for _, i := range e.indexes() {
		msgs = append(msgs, fmt.Sprintf("call %d (%s): %v", i, e[i].Method(), e[i].err))
	}
	return fmt.Sprintf("%d errors: %s", len(e), strings.Join(msgs, "; "))
}

func (e BatchError) ErrorMap() map[int]error {
	errMap := make(map[int]error, len(e))
	for i, c := range e {
		errMap[i] = c
	}
	return errMap
}

// Unwrap returns the failure of the lowest indexed call.
func (e BatchError) Unwrap() error {
	idx := e.indexes()
	if len(idx) == 0 {
		return nil
	}
	return e[idx[0]]
}

func (e BatchError) indexes() []int {
	idx := make([]int, 0, len(e))
	for i := range e {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
