package ethtest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/setheum-labs/evmkit/ethrpc"
	"github.com/setheum-labs/evmkit/ethrpc/jsonrpc"
)

// MockRequest is a JSON-RPC request received by a MockNode.
type MockRequest struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// MockHandler answers a single JSON-RPC method. Returning a jsonrpc.Error sends it
// to the client as is, other errors are sent with code -32000.
type MockHandler func(params []json.RawMessage) (any, error)

// MockNode is an in-process JSON-RPC node for unit tests. It answers both single
// requests and batches.
type MockNode struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]MockHandler
	requests []MockRequest
	batches  int
}

func NewMockNode(t testing.TB) *MockNode {
	n := &MockNode{handlers: map[string]MockHandler{}}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(n.Close)
	return n
}

func (n *MockNode) Handle(method string, h MockHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// HandleResult answers method with a fixed result.
func (n *MockNode) HandleResult(method string, result any) {
	n.Handle(method, func([]json.RawMessage) (any, error) {
		return result, nil
	})
}

// HandleError answers method with a fixed JSON-RPC error.
func (n *MockNode) HandleError(method string, rpcErr jsonrpc.Error) {
	n.Handle(method, func([]json.RawMessage) (any, error) {
		return nil, rpcErr
	})
}

// Requests returns the requests received so far, in arrival order.
func (n *MockNode) Requests() []MockRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]MockRequest(nil), n.requests...)
}

// RequestsFor returns the requests received for method.
func (n *MockNode) RequestsFor(method string) []MockRequest {
	var out []MockRequest
	for _, req := range n.Requests() {
		if req.Method == method {
			out = append(out, req)
		}
	}
	return out
}

// HTTPRequests is the number of HTTP round trips served.
func (n *MockNode) HTTPRequests() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.batches
}

func (n *MockNode) Provider(t testing.TB, options ...ethrpc.Option) *ethrpc.Provider {
	p, err := ethrpc.NewProvider(n.URL, options...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

type mockResponse struct {
	Version string         `json:"jsonrpc"`
	ID      uint64         `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *jsonrpc.Error `json:"error,omitempty"`
}

func (n *MockNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		reqs    []MockRequest
		isBatch = len(body) > 0 && body[0] == '['
	)
	if isBatch {
		err = json.Unmarshal(body, &reqs)
	} else {
		var req MockRequest
		err = json.Unmarshal(body, &req)
		reqs = []MockRequest{req}
	}
	if err != nil {
		writeJSON(w, mockResponse{Version: "2.0", Error: &jsonrpc.Error{Code: -32700, Message: "parse error"}})
		return
	}

	n.mu.Lock()
	n.batches++
	n.requests = append(n.requests, reqs...)
	n.mu.Unlock()

	resps := make([]mockResponse, 0, len(reqs))
	for _, req := range reqs {
		resps = append(resps, n.answer(req))
	}

	if isBatch {
		writeJSON(w, resps)
	} else {
		writeJSON(w, resps[0])
	}
}

func (n *MockNode) answer(req MockRequest) mockResponse {
	resp := mockResponse{Version: "2.0", ID: req.ID}

	n.mu.Lock()
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()
	if !ok {
		resp.Error = &jsonrpc.Error{Code: -32601, Message: "the method " + req.Method + " does not exist/is not available"}
		return resp
	}

	result, err := h(req.Params)
	if err != nil {
		var rpcErr jsonrpc.Error
		if errors.As(err, &rpcErr) {
			resp.Error = &rpcErr
		} else {
			resp.Error = &jsonrpc.Error{Code: -32000, Message: err.Error()}
		}
		return resp
	}
	if result == nil {
		resp.Result = json.RawMessage("null")
	} else {
		resp.Result = result
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
