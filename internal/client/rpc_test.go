package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcCall struct {
	Method string
	Params json.RawMessage
}

type rpcReply struct {
	Result any
	Code   int
	Msg    string
}

// fakeRPC is a JSON-RPC 2.0 endpoint answering from a handler and recording calls.
type fakeRPC struct {
	mu      sync.Mutex
	calls   []rpcCall
	handler func(call rpcCall) rpcReply
}

func newFakeRPC(t *testing.T, handler func(call rpcCall) rpcReply) (*fakeRPC, string) {
	t.Helper()
	f := &fakeRPC{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		call := rpcCall{Method: req.Method, Params: req.Params}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		reply := f.handler(call)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if reply.Code != 0 {
			resp["error"] = map[string]any{"code": reply.Code, "message": reply.Msg}
		} else {
			resp["result"] = reply.Result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeRPC) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

func (f *fakeRPC) lastParams(t *testing.T, into any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	require.NoError(t, json.Unmarshal(f.calls[len(f.calls)-1].Params, into))
}
