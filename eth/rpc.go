package eth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/airchains-network/gethrpc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

var errNullResult = errors.New("null result")

// call issues one request and decodes its result into result. A nil result
// discards the response.
func (c *GethClient) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	var raw json.RawMessage
	if err := c.transport.CallContext(ctx, &raw, method, args...); err != nil {
		return &Error{Method: method, Err: err}
	}
	if result == nil {
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return &Error{Method: method, Err: errNullResult}
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return &Error{Method: method, Err: fmt.Errorf("failed to decode result: %w", err)}
	}
	return nil
}

// Coinbase calls eth_coinbase.
func (c *GethClient) Coinbase(ctx context.Context) (common.Address, error) {
	var coinbase common.Address
	err := c.call(ctx, &coinbase, "eth_coinbase")
	return coinbase, err
}

// ChainID calls eth_chainId.
func (c *GethClient) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// BlockByHash calls eth_getBlockByHash, always with full transaction objects.
func (c *GethClient) BlockByHash(ctx context.Context, hash common.Hash) (*types.Block, error) {
	var block types.Block
	if err := c.call(ctx, &block, "eth_getBlockByHash", hash, true); err != nil {
		return nil, err
	}
	return &block, nil
}

// BlockByNumber calls eth_getBlockByNumber, always with full transaction
// objects.
func (c *GethClient) BlockByNumber(ctx context.Context, number rpc.BlockNumber) (*types.Block, error) {
	const method = "eth_getBlockByNumber"
	if err := checkBlockNumber(number); err != nil {
		return nil, &Error{Method: method, Err: err}
	}
	var block types.Block
	if err := c.call(ctx, &block, method, number, true); err != nil {
		return nil, err
	}
	return &block, nil
}

// TransactionByHash calls eth_getTransactionByHash.
func (c *GethClient) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	var tx types.Transaction
	if err := c.call(ctx, &tx, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	return &tx, nil
}

// TraceBlockByHash calls debug_traceBlockByHash with the struct logger and
// returns one trace per transaction, in block order.
func (c *GethClient) TraceBlockByHash(ctx context.Context, hash common.Hash) ([]*types.GethExecTrace, error) {
	return c.traceBlock(ctx, "debug_traceBlockByHash", hash)
}

// TraceBlockByNumber calls debug_traceBlockByNumber with the struct logger
// and returns one trace per transaction, in block order.
func (c *GethClient) TraceBlockByNumber(ctx context.Context, number rpc.BlockNumber) ([]*types.GethExecTrace, error) {
	const method = "debug_traceBlockByNumber"
	if err := checkBlockNumber(number); err != nil {
		return nil, &Error{Method: method, Err: err}
	}
	return c.traceBlock(ctx, method, number)
}

func (c *GethClient) traceBlock(ctx context.Context, method string, block interface{}) ([]*types.GethExecTrace, error) {
	var resp []resultExecTrace
	if err := c.call(ctx, &resp, method, block, defaultLoggerConfig()); err != nil {
		return nil, err
	}
	traces := make([]*types.GethExecTrace, len(resp))
	for i, r := range resp {
		if r.Error != "" {
			return nil, &Error{Method: method, Err: fmt.Errorf("transaction %d: %s", i, r.Error)}
		}
		if r.Result == nil {
			return nil, &Error{Method: method, Err: fmt.Errorf("transaction %d: %w", i, errNullResult)}
		}
		traces[i] = r.Result
	}
	return traces, nil
}

// TraceTransaction calls debug_traceTransaction with the struct logger.
// Memory is captured only when the client is memory strict.
func (c *GethClient) TraceTransaction(ctx context.Context, hash common.Hash) (*types.GethExecTrace, error) {
	cfg := defaultLoggerConfig()
	cfg.EnableMemory = c.checkMemStrict

	var trace types.GethExecTrace
	if err := c.call(ctx, &trace, "debug_traceTransaction", hash, cfg); err != nil {
		return nil, err
	}
	return &trace, nil
}

// TraceTransactionPrestate calls debug_traceTransaction with the
// prestateTracer.
func (c *GethClient) TraceTransactionPrestate(ctx context.Context, hash common.Hash) (types.PrestateTrace, error) {
	var prestate types.PrestateTrace
	if err := c.call(ctx, &prestate, "debug_traceTransaction", hash, tracerConfig{Tracer: prestateTracer}); err != nil {
		return nil, err
	}
	return prestate, nil
}

// TraceBlockPrestateByHash calls debug_traceBlockByHash with the
// prestateTracer and returns one prestate per transaction, in block order.
func (c *GethClient) TraceBlockPrestateByHash(ctx context.Context, hash common.Hash) ([]types.PrestateTrace, error) {
	const method = "debug_traceBlockByHash"
	var resp []resultPrestateTrace
	if err := c.call(ctx, &resp, method, hash, tracerConfig{Tracer: prestateTracer}); err != nil {
		return nil, err
	}
	prestates := make([]types.PrestateTrace, len(resp))
	for i, r := range resp {
		if r.Error != "" {
			return nil, &Error{Method: method, Err: fmt.Errorf("transaction %d: %s", i, r.Error)}
		}
		if r.Result == nil {
			return nil, &Error{Method: method, Err: fmt.Errorf("transaction %d: %w", i, errNullResult)}
		}
		prestates[i] = r.Result
	}
	return prestates, nil
}

// Code calls eth_getCode.
func (c *GethClient) Code(ctx context.Context, account common.Address, number rpc.BlockNumber) ([]byte, error) {
	const method = "eth_getCode"
	if err := checkBlockNumber(number); err != nil {
		return nil, &Error{Method: method, Err: err}
	}
	var code hexutil.Bytes
	if err := c.call(ctx, &code, method, account, number); err != nil {
		return nil, err
	}
	return code, nil
}

// Proof calls eth_getProof for the account and the given storage keys.
func (c *GethClient) Proof(ctx context.Context, account common.Address, keys []*uint256.Int, number rpc.BlockNumber) (*types.AccountProof, error) {
	const method = "eth_getProof"
	if err := checkBlockNumber(number); err != nil {
		return nil, &Error{Method: method, Err: err}
	}
	var proof types.AccountProof
	if err := c.call(ctx, &proof, method, account, paddedWords(keys), number); err != nil {
		return nil, err
	}
	return &proof, nil
}

// MinerStop calls miner_stop. Only useful against dev nodes.
func (c *GethClient) MinerStop(ctx context.Context) error {
	return c.call(ctx, nil, "miner_stop")
}

// MinerStart calls miner_start with a single thread.
func (c *GethClient) MinerStart(ctx context.Context) error {
	return c.call(ctx, nil, "miner_start", 1)
}

// Mine calls anvil_mine to mine one block with a 12 second interval.
func (c *GethClient) Mine(ctx context.Context) error {
	return c.call(ctx, nil, "anvil_mine", 1, 12)
}

// Reset calls anvil_reset, pointing the fork at jsonRPCURL as of blockNumber.
func (c *GethClient) Reset(ctx context.Context, jsonRPCURL string, blockNumber uint64) error {
	forking := forkingConfig{
		JSONRPCURL:  jsonRPCURL,
		BlockNumber: hexutil.Uint64(blockNumber),
	}
	return c.call(ctx, nil, "anvil_reset", forking)
}

// SetNonce calls anvil_setNonce.
func (c *GethClient) SetNonce(ctx context.Context, account common.Address, nonce *uint256.Int) error {
	return c.call(ctx, nil, "anvil_setNonce", account, quantity(nonce))
}

// SendRawTransaction calls eth_sendRawTransaction and returns the hash the
// node reports.
func (c *GethClient) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	var hash common.Hash
	err := c.call(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(rawTx))
	return hash, err
}

// SetNextBlockBaseFeePerGas calls anvil_setNextBlockBaseFeePerGas.
func (c *GethClient) SetNextBlockBaseFeePerGas(ctx context.Context, baseFee *uint256.Int) error {
	return c.call(ctx, nil, "anvil_setNextBlockBaseFeePerGas", quantity(baseFee))
}

type resultExecTrace struct {
	Result *types.GethExecTrace `json:"result"`
	Error  string               `json:"error,omitempty"`
}

type resultPrestateTrace struct {
	Result types.PrestateTrace `json:"result"`
	Error  string              `json:"error,omitempty"`
}
