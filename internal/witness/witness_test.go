package witness

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airchains-network/gethrpc/db"
	"github.com/airchains-network/gethrpc/eth"
	"github.com/airchains-network/gethrpc/internal/rpctest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	blockHash = "0x00000000000000000000000000000000000000000000000000000000000b10c0"
	accountA  = "0x000000000000000000000000000000000000000a"
	accountB  = "0x000000000000000000000000000000000000000b"
	accountC  = "0x000000000000000000000000000000000000000c"
	slot1     = "0x0000000000000000000000000000000000000000000000000000000000000001"
	slot2     = "0x0000000000000000000000000000000000000000000000000000000000000002"
)

const blockJSON = `{
	"number":"0x10",
	"hash":"` + blockHash + `",
	"transactions":[
		{"hash":"0x0000000000000000000000000000000000000000000000000000000000000001","nonce":"0x0","from":"` + accountA + `","to":"` + accountB + `","gas":"0x5208","input":"0x"},
		{"hash":"0x0000000000000000000000000000000000000000000000000000000000000002","nonce":"0x1","from":"` + accountA + `","to":"` + accountC + `","gas":"0x5208","input":"0x"}
	]
}`

const execTracesJSON = `[
	{"result":{"gas":21000,"failed":false,"returnValue":"","structLogs":[]}},
	{"result":{"gas":30000,"failed":false,"returnValue":"","structLogs":[]}}
]`

const prestatesJSON = `[
	{"result":{"` + accountA + `":{"balance":"0x1","storage":{"` + slot2 + `":"` + slot1 + `"}},"` + accountB + `":{"balance":"0x0"}}},
	{"result":{"` + accountA + `":{"balance":"0x1","storage":{"` + slot1 + `":"` + slot1 + `"}},"` + accountC + `":{"balance":"0x0","code":"0x6000"}}}
]`

// newNode serves a two transaction block at height 16.
func newNode(traces string) *rpctest.Node {
	node := rpctest.NewNode()
	node.HandleResult("eth_getBlockByNumber", json.RawMessage(blockJSON))
	node.Handle("debug_traceBlockByHash", func(params []json.RawMessage) (interface{}, *rpctest.Error) {
		if len(params) == 2 && strings.Contains(string(params[1]), "prestateTracer") {
			return json.RawMessage(prestatesJSON), nil
		}
		return json.RawMessage(traces), nil
	})
	node.Handle("eth_getCode", func(params []json.RawMessage) (interface{}, *rpctest.Error) {
		if string(params[0]) == `"`+accountC+`"` {
			return "0x6000", nil
		}
		return "0x", nil
	})
	node.Handle("eth_getProof", func(params []json.RawMessage) (interface{}, *rpctest.Error) {
		var addr string
		if err := json.Unmarshal(params[0], &addr); err != nil {
			return nil, &rpctest.Error{Code: -32602, Message: err.Error()}
		}
		return map[string]interface{}{
			"address":      addr,
			"accountProof": []string{"0xf8"},
			"balance":      "0x0",
			"nonce":        "0x0",
			"storageProof": []interface{}{},
		}, nil
	})
	return node
}

func dial(t *testing.T, node *rpctest.Node) *eth.GethClient {
	t.Helper()
	srv := httptest.NewServer(node.Handler())
	t.Cleanup(srv.Close)
	client, rpcClient, err := eth.Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(rpcClient.Close)
	return client
}

func callsTo(node *rpctest.Node, method string) []rpctest.Call {
	var calls []rpctest.Call
	for _, call := range node.Calls() {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

func TestFetch(t *testing.T) {
	node := newNode(execTracesJSON)
	log, _ := logtest.NewNullLogger()
	fetcher := NewFetcher(dial(t, node), log, WithConcurrency(2))

	w, err := fetcher.Fetch(context.Background(), rpc.BlockNumber(16))
	require.NoError(t, err)

	assert.Len(t, w.Traces, 2)
	assert.Equal(t, uint64(30000), w.Traces[1].Gas)
	assert.Len(t, w.Prestates, 2)

	require.Len(t, w.Proofs, 3)
	assert.Equal(t, common.HexToAddress(accountA), w.Proofs[0].Address)
	assert.Equal(t, common.HexToAddress(accountB), w.Proofs[1].Address)
	assert.Equal(t, common.HexToAddress(accountC), w.Proofs[2].Address)
	assert.Equal(t, []byte{0x60, 0x00}, []byte(w.Codes[common.HexToAddress(accountC)]))
	assert.Empty(t, w.Codes[common.HexToAddress(accountA)])

	proofCalls := callsTo(node, "eth_getProof")
	require.Len(t, proofCalls, 3)
	for _, call := range proofCalls {
		require.Len(t, call.Params, 3)
		assert.JSONEq(t, `"0xf"`, string(call.Params[2]), "proofs are taken at the parent block")
		if string(call.Params[0]) == `"`+accountA+`"` {
			assert.JSONEq(t, `["`+slot1+`","`+slot2+`"]`, string(call.Params[1]))
		} else {
			assert.JSONEq(t, `[]`, string(call.Params[1]))
		}
	}
	assert.Len(t, callsTo(node, "eth_getCode"), 3)
}

func TestFetch_TraceCountMismatch(t *testing.T) {
	node := newNode(`[{"result":{"gas":21000,"failed":false,"returnValue":"","structLogs":[]}}]`)
	log, _ := logtest.NewNullLogger()
	fetcher := NewFetcher(dial(t, node), log)

	_, err := fetcher.Fetch(context.Background(), rpc.BlockNumber(16))
	assert.ErrorIs(t, err, ErrTraceMismatch)
	assert.Empty(t, callsTo(node, "eth_getProof"))
}

func TestFetch_RPCFailure(t *testing.T) {
	node := newNode(execTracesJSON)
	node.HandleError("eth_getProof", -32000, "missing trie node")
	log, _ := logtest.NewNullLogger()
	fetcher := NewFetcher(dial(t, node), log)

	_, err := fetcher.Fetch(context.Background(), rpc.BlockNumber(16))
	require.ErrorIs(t, err, eth.ErrJSONRpc)
	assert.Contains(t, err.Error(), "missing trie node")
}

func TestFetch_Stores(t *testing.T) {
	store, err := db.OpenWitnessStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	fetcher := NewFetcher(dial(t, newNode(execTracesJSON)), log, WithStore(store))

	w, err := fetcher.Fetch(context.Background(), rpc.BlockNumber(16))
	require.NoError(t, err)

	hash, ok, err := store.BlockHash(16)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *w.Block.Hash, hash)

	proofs, err := store.Proofs(hash)
	require.NoError(t, err)
	assert.Len(t, proofs, 3)

	code, err := store.Code(hash, common.HexToAddress(accountC))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x00}, code)

	traces, err := store.Traces(hash)
	require.NoError(t, err)
	assert.Len(t, traces, 2)

	assert.Equal(t, "Stored block witness", hook.LastEntry().Message)
}
