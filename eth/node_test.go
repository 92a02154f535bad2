package eth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/airchains-network/gethrpc/internal/rpctest"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialNode serves node over httptest and dials it with the given scheme.
func dialNode(t *testing.T, node *rpctest.Node, scheme string) *GethClient {
	t.Helper()
	srv := httptest.NewServer(node.Handler())
	t.Cleanup(srv.Close)

	url := srv.URL
	if scheme == "ws" {
		url = "ws" + strings.TrimPrefix(srv.URL, "http")
	}
	client, rpcClient, err := Dial(context.Background(), url, WithMemoryStrict(true))
	require.NoError(t, err)
	t.Cleanup(rpcClient.Close)
	return client
}

func TestGethClientOverNode(t *testing.T) {
	for _, scheme := range []string{"http", "ws"} {
		t.Run(scheme, func(t *testing.T) {
			node := rpctest.NewNode()
			node.HandleResult("eth_chainId", "0x539")
			node.HandleResult("debug_traceTransaction", json.RawMessage(execTraceJSON))
			node.HandleResult("eth_getProof", json.RawMessage(`{"address":"0x00000000000000000000000000000000000000aa","accountProof":[],"storageProof":[]}`))
			node.HandleResult("anvil_mine", nil)

			client := dialNode(t, node, scheme)
			ctx := context.Background()

			id, err := client.ChainID(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(1337), id)

			trace, err := client.TraceTransaction(ctx, testHash)
			require.NoError(t, err)
			assert.Len(t, trace.StructLogs, 1)

			_, err = client.Proof(ctx, testAddr, []*uint256.Int{uint256.NewInt(0x10)}, rpc.BlockNumber(3))
			require.NoError(t, err)

			require.NoError(t, client.Mine(ctx))

			calls := node.Calls()
			require.Len(t, calls, 4)
			assert.Equal(t, "eth_chainId", calls[0].Method)

			assert.Equal(t, "debug_traceTransaction", calls[1].Method)
			require.Len(t, calls[1].Params, 2)
			assert.JSONEq(t, `{"EnableMemory":true,"DisableStack":false,"DisableStorage":false,"EnableReturnData":true}`, string(calls[1].Params[1]))

			assert.Equal(t, "eth_getProof", calls[2].Method)
			require.Len(t, calls[2].Params, 3)
			assert.JSONEq(t, `["0x0000000000000000000000000000000000000000000000000000000000000010"]`, string(calls[2].Params[1]))
			assert.JSONEq(t, `"0x3"`, string(calls[2].Params[2]))

			assert.Equal(t, "anvil_mine", calls[3].Method)
			require.Len(t, calls[3].Params, 2)
			assert.JSONEq(t, `1`, string(calls[3].Params[0]))
			assert.JSONEq(t, `12`, string(calls[3].Params[1]))
		})
	}
}

func TestGethClientOverNode_RemoteError(t *testing.T) {
	node := rpctest.NewNode()
	node.HandleError("debug_traceTransaction", -32000, "transaction 0x5c50 not found")
	client := dialNode(t, node, "http")

	_, err := client.TraceTransaction(context.Background(), testHash)
	require.ErrorIs(t, err, ErrJSONRpc)

	var remote rpc.Error
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, -32000, remote.ErrorCode())
	assert.Contains(t, err.Error(), "debug_traceTransaction")
}

func TestGethClientOverNode_UnknownMethod(t *testing.T) {
	client := dialNode(t, rpctest.NewNode(), "ws")

	_, err := client.Coinbase(context.Background())
	require.ErrorIs(t, err, ErrJSONRpc)

	var remote rpc.Error
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, -32601, remote.ErrorCode())
}

func TestGethClientOverNode_NullBlock(t *testing.T) {
	node := rpctest.NewNode()
	node.HandleResult("eth_getBlockByNumber", nil)
	client := dialNode(t, node, "http")

	_, err := client.BlockByNumber(context.Background(), rpc.BlockNumber(1_000_000))
	assert.ErrorIs(t, err, ErrJSONRpc)
	assert.ErrorIs(t, err, errNullResult)
}

func TestGethClientOverNode_ConcurrentCalls(t *testing.T) {
	node := rpctest.NewNode()
	node.HandleResult("eth_getCode", "0x6001")
	client := dialNode(t, node, "ws")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := client.Code(context.Background(), testAddr, rpc.LatestBlockNumber)
			if err == nil && len(code) != 2 {
				err = errors.New("unexpected code length")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, node.Calls(), 16)
}
