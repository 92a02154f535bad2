package replay

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/airchains-network/gethrpc/eth"
	"github.com/airchains-network/gethrpc/internal/rpctest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chainID = big.NewInt(1337)

func signedTx(t *testing.T, key *ecdsa.PrivateKey, nonce uint64) []byte {
	t.Helper()
	to := common.HexToAddress("0xbb")
	tx, err := gethtypes.SignNewTx(key, gethtypes.LatestSignerForChainID(chainID), &gethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(1_000_000_000),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

// newNode answers the dev node methods, echoing keccak256 of the submitted
// bytes as the transaction hash.
func newNode() *rpctest.Node {
	node := rpctest.NewNode()
	node.HandleResult("anvil_reset", nil)
	node.HandleResult("anvil_setNextBlockBaseFeePerGas", nil)
	node.HandleResult("anvil_setNonce", nil)
	node.HandleResult("anvil_mine", nil)
	node.Handle("eth_sendRawTransaction", func(params []json.RawMessage) (interface{}, *rpctest.Error) {
		var raw hexutil.Bytes
		if err := json.Unmarshal(params[0], &raw); err != nil {
			return nil, &rpctest.Error{Code: -32602, Message: err.Error()}
		}
		return crypto.Keccak256Hash(raw), nil
	})
	return node
}

func newReplayer(t *testing.T, node *rpctest.Node) *Replayer {
	t.Helper()
	srv := httptest.NewServer(node.Handler())
	t.Cleanup(srv.Close)
	client, rpcClient, err := eth.Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(rpcClient.Close)

	log, _ := logtest.NewNullLogger()
	return NewReplayer(client, log)
}

func methods(node *rpctest.Node) []string {
	var names []string
	for _, call := range node.Calls() {
		names = append(names, call.Method)
	}
	return names
}

func TestReplay(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	node := newNode()
	r := newReplayer(t, node)
	first, second := signedTx(t, key, 5), signedTx(t, key, 6)
	require.NoError(t, r.AddTx(first))
	require.NoError(t, r.AddTxHex(hexutil.Encode(second)))
	assert.Equal(t, 2, r.Pending())

	hashes, err := r.Replay(context.Background(), Fork{
		UpstreamURL: "http://upstream:8545",
		BlockNumber: 100,
		BaseFee:     uint256.NewInt(7),
	})
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{crypto.Keccak256Hash(first), crypto.Keccak256Hash(second)}, hashes)
	assert.Zero(t, r.Pending())

	assert.Equal(t, []string{
		"anvil_reset",
		"anvil_setNextBlockBaseFeePerGas",
		"anvil_setNonce", "eth_sendRawTransaction", "anvil_mine",
		"anvil_setNonce", "eth_sendRawTransaction", "anvil_mine",
	}, methods(node))

	calls := node.Calls()
	assert.JSONEq(t, `{"json_rpc_url":"http://upstream:8545","block_number":"0x64"}`, string(calls[0].Params[0]))
	assert.JSONEq(t, `"0x7"`, string(calls[1].Params[0]))
	assert.JSONEq(t, `"`+hexutil.Encode(sender[:])+`"`, string(calls[2].Params[0]))
	assert.JSONEq(t, `"0x5"`, string(calls[2].Params[1]))
	assert.JSONEq(t, `"0x6"`, string(calls[5].Params[1]))
}

func TestReplay_WithoutBaseFee(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	node := newNode()
	r := newReplayer(t, node)
	require.NoError(t, r.AddTx(signedTx(t, key, 0)))

	_, err = r.Replay(context.Background(), Fork{UpstreamURL: "http://upstream:8545", BlockNumber: 1})
	require.NoError(t, err)
	assert.NotContains(t, methods(node), "anvil_setNextBlockBaseFeePerGas")
}

func TestReplay_StopsAtFirstFailure(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	node := newNode()
	var sent atomic.Int32
	node.Handle("eth_sendRawTransaction", func(params []json.RawMessage) (interface{}, *rpctest.Error) {
		if sent.Add(1) == 2 {
			return nil, &rpctest.Error{Code: -32000, Message: "nonce too low"}
		}
		var raw hexutil.Bytes
		_ = json.Unmarshal(params[0], &raw)
		return crypto.Keccak256Hash(raw), nil
	})
	r := newReplayer(t, node)
	for nonce := uint64(0); nonce < 3; nonce++ {
		require.NoError(t, r.AddTx(signedTx(t, key, nonce)))
	}

	hashes, err := r.Replay(context.Background(), Fork{UpstreamURL: "http://upstream:8545", BlockNumber: 1})
	require.ErrorIs(t, err, eth.ErrJSONRpc)
	assert.Contains(t, err.Error(), "nonce too low")
	assert.Len(t, hashes, 1)
	assert.Equal(t, 2, r.Pending(), "the failed transaction and the rest stay queued")
}

func TestReplay_HashMismatch(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	node := newNode()
	node.HandleResult("eth_sendRawTransaction", common.HexToHash("0xbad"))
	r := newReplayer(t, node)
	require.NoError(t, r.AddTx(signedTx(t, key, 0)))

	hashes, err := r.Replay(context.Background(), Fork{UpstreamURL: "http://upstream:8545", BlockNumber: 1})
	assert.ErrorIs(t, err, ErrHashMismatch)
	assert.Empty(t, hashes)
	assert.NotContains(t, methods(node), "anvil_mine")
}

func TestAddTx_RejectsGarbage(t *testing.T) {
	r := newReplayer(t, newNode())
	assert.Error(t, r.AddTx([]byte{0x01, 0x02}))
	assert.Error(t, r.AddTxHex("zz"))
	assert.Zero(t, r.Pending())
}
