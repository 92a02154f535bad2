package eth

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

const prestateTracer = "prestateTracer"

// loggerConfig is the struct logger configuration of the debug_trace*
// methods. Field names on the wire are the geth ones.
type loggerConfig struct {
	EnableMemory     bool `json:"EnableMemory"`
	DisableStack     bool `json:"DisableStack"`
	DisableStorage   bool `json:"DisableStorage"`
	EnableReturnData bool `json:"EnableReturnData"`
}

func defaultLoggerConfig() loggerConfig {
	return loggerConfig{
		EnableMemory:     false,
		DisableStack:     false,
		DisableStorage:   false,
		EnableReturnData: true,
	}
}

// tracerConfig selects a named native tracer. It carries no logger flags.
type tracerConfig struct {
	Tracer string `json:"tracer"`
}

// forkingConfig is the anvil_reset parameter.
type forkingConfig struct {
	JSONRPCURL  string         `json:"json_rpc_url"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
}

// paddedWords encodes storage keys as 0x-prefixed, 64 digit, zero padded
// lowercase hex. eth_getProof matches keys as strings, so the minimal
// quantity encoding of the same value would not be found.
type paddedWords []*uint256.Int

func (w paddedWords) MarshalJSON() ([]byte, error) {
	words := make([]string, len(w))
	for i, word := range w {
		words[i] = paddedHex(word)
	}
	return json.Marshal(words)
}

func paddedHex(word *uint256.Int) string {
	var b [32]byte
	if word != nil {
		b = word.Bytes32()
	}
	return hexutil.Encode(b[:])
}

// quantity encodes a 256-bit value as a hex quantity; nil is zero.
func quantity(x *uint256.Int) *hexutil.Big {
	if x == nil {
		return (*hexutil.Big)(new(big.Int))
	}
	return (*hexutil.Big)(x.ToBig())
}

func checkBlockNumber(number rpc.BlockNumber) error {
	if number < rpc.SafeBlockNumber {
		return fmt.Errorf("invalid block number %d", int64(number))
	}
	return nil
}
