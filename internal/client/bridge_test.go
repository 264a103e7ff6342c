package client

import (
	"context"
	"math/big"
	"testing"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/model"

	"github.com/stretchr/testify/require"
)

func TestNewBridgeClientRequiresLoopback(t *testing.T) {
	_, err := NewBridgeClient("http://10.0.0.5:7070")
	require.Error(t, err)

	_, err = NewBridgeClient("http://localhost:7070")
	require.NoError(t, err)

	_, err = NewBridgeClient("http://[::1]:7070")
	require.NoError(t, err)
}

func TestBridgeLedgerFund(t *testing.T) {
	fake, url := newFakeRPC(t, func(call rpcCall) rpcReply {
		if call.Method != "tongo_fund" {
			return rpcReply{Code: -32601, Msg: "method not found"}
		}
		return rpcReply{Result: map[string]any{
			"approve": map[string]any{"contractAddress": "0xstrk", "entrypoint": "0x219209e083275171774dab1df80982e9df2096516f06319c5c6d71ae0a8480c", "calldata": []string{"0xtongo", "0x28", "0x0"}},
			"call":    map[string]any{"contractAddress": "0xtongo", "entrypoint": "0x1", "calldata": []string{"0x28"}},
		}}
	})
	bridge, err := NewBridgeClient(url)
	require.NoError(t, err)

	key := big.NewInt(12345)
	ledger := bridge.Ledger("0xtongo", model.AccountCredentials{Address: "0xowner", PrivateKey: "0x1"}, key)

	op, err := ledger.Fund(context.Background(), 40)
	require.NoError(t, err)
	calls := op.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, "0xstrk", calls[0].To)
	require.Equal(t, "0xtongo", calls[1].To)

	var params []map[string]any
	fake.lastParams(t, &params)
	require.Equal(t, "0xtongo", params[0]["contract"])
	require.Equal(t, "0xowner", params[0]["owner"])
	require.Equal(t, float64(40), params[0]["amount"])

	point := crypto.PublicPoint(key)
	require.Equal(t, crypto.EncodeAddress(&point), ledger.Address())
}

func TestBridgeLedgerRolloverHasNoAmount(t *testing.T) {
	fake, url := newFakeRPC(t, func(call rpcCall) rpcReply {
		return rpcReply{Result: map[string]any{
			"call": map[string]any{"contractAddress": "0xtongo", "entrypoint": "0x2", "calldata": []string{}},
		}}
	})
	bridge, err := NewBridgeClient(url)
	require.NoError(t, err)
	ledger := bridge.Ledger("0xtongo", model.AccountCredentials{Address: "0xowner"}, big.NewInt(7))

	op, err := ledger.Rollover(context.Background())
	require.NoError(t, err)
	require.Nil(t, op.Approve)
	require.Equal(t, []string{"tongo_rollover"}, fake.methods())

	var params []map[string]any
	fake.lastParams(t, &params)
	_, hasAmount := params[0]["amount"]
	require.False(t, hasAmount)
}

func TestBridgeLedgerStateAndRate(t *testing.T) {
	_, url := newFakeRPC(t, func(call rpcCall) rpcReply {
		switch call.Method {
		case "tongo_state":
			return rpcReply{Result: map[string]any{"balance": 40, "pending": 2, "nonce": 3}}
		case "tongo_rate":
			return rpcReply{Result: "50000000000000000"}
		}
		return rpcReply{Code: -32601, Msg: "method not found"}
	})
	bridge, err := NewBridgeClient(url)
	require.NoError(t, err)
	ledger := bridge.Ledger("0xtongo", model.AccountCredentials{Address: "0xowner"}, big.NewInt(7))

	state, err := ledger.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.LedgerState{Balance: 40, Pending: 2, Nonce: 3}, *state)

	rate, err := ledger.Rate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "50000000000000000", rate.String())
}

func TestBridgeLedgerStateRejectsOverflow(t *testing.T) {
	_, url := newFakeRPC(t, func(call rpcCall) rpcReply {
		return rpcReply{Result: map[string]any{"balance": uint64(1) << 33, "pending": 0, "nonce": 0}}
	})
	bridge, err := NewBridgeClient(url)
	require.NoError(t, err)

	_, err = bridge.Ledger("0xtongo", model.AccountCredentials{}, big.NewInt(7)).State(context.Background())
	require.Error(t, err)
}

func TestBridgeExecute(t *testing.T) {
	fake, url := newFakeRPC(t, func(call rpcCall) rpcReply {
		return rpcReply{Result: map[string]any{"transactionHash": "0xfeed"}}
	})
	bridge, err := NewBridgeClient(url)
	require.NoError(t, err)

	sub, err := bridge.Execute(context.Background(), model.AccountCredentials{Address: "0xowner"}, []model.Call{{To: "0x1", Selector: "0x2"}})
	require.NoError(t, err)
	require.Equal(t, "0xfeed", sub.TxHash)
	require.Equal(t, []string{"account_execute"}, fake.methods())
}
