package types

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// GethExecTrace is the struct logger output of a single transaction.
type GethExecTrace struct {
	Gas         uint64         `json:"gas"`
	Failed      bool           `json:"failed"`
	ReturnValue string         `json:"returnValue"`
	StructLogs  []GethExecStep `json:"structLogs"`
}

// GethExecStep is one executed opcode. Stack, memory and storage are kept
// exactly as the node formats them.
type GethExecStep struct {
	Pc      uint64            `json:"pc"`
	Op      string            `json:"op"`
	Gas     uint64            `json:"gas"`
	GasCost uint64            `json:"gasCost"`
	Refund  uint64            `json:"refund,omitempty"`
	Depth   int               `json:"depth"`
	Error   string            `json:"error,omitempty"`
	Stack   []string          `json:"stack,omitempty"`
	Memory  []string          `json:"memory,omitempty"`
	Storage map[string]string `json:"storage,omitempty"`
}

// PrestateAccount is the state of an account before a transaction ran, as
// reported by the prestateTracer.
type PrestateAccount struct {
	Balance *hexutil.Big                `json:"balance,omitempty"`
	Nonce   uint64                      `json:"nonce,omitempty"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// PrestateTrace maps every account touched by a transaction to its prestate.
type PrestateTrace map[common.Address]*PrestateAccount

// Addresses returns the touched accounts in ascending byte order.
func (p PrestateTrace) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(p))
	for addr := range p {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

// TouchedStorage merges the storage slots read by a set of prestate traces,
// per account, sorted ascending and deduplicated. Accounts without storage
// are present with an empty slice.
func TouchedStorage(traces ...PrestateTrace) map[common.Address][]*uint256.Int {
	seen := make(map[common.Address]map[common.Hash]struct{})
	for _, trace := range traces {
		for addr, acc := range trace {
			if seen[addr] == nil {
				seen[addr] = make(map[common.Hash]struct{})
			}
			if acc == nil {
				continue
			}
			for slot := range acc.Storage {
				seen[addr][slot] = struct{}{}
			}
		}
	}

	touched := make(map[common.Address][]*uint256.Int, len(seen))
	for addr, slots := range seen {
		keys := make([]*uint256.Int, 0, len(slots))
		for slot := range slots {
			keys = append(keys, new(uint256.Int).SetBytes32(slot[:]))
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Lt(keys[j]) })
		touched[addr] = keys
	}
	return touched
}
