package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Block is a block as returned by eth_getBlockBy* with full transaction objects.
type Block struct {
	Hash             *common.Hash          `json:"hash"`
	ParentHash       common.Hash           `json:"parentHash"`
	Sha3Uncles       common.Hash           `json:"sha3Uncles"`
	Miner            *common.Address       `json:"miner"`
	StateRoot        common.Hash           `json:"stateRoot"`
	TransactionsRoot common.Hash           `json:"transactionsRoot"`
	ReceiptsRoot     common.Hash           `json:"receiptsRoot"`
	LogsBloom        hexutil.Bytes         `json:"logsBloom"`
	Difficulty       *hexutil.Big          `json:"difficulty"`
	TotalDifficulty  *hexutil.Big          `json:"totalDifficulty,omitempty"`
	Number           *hexutil.Big          `json:"number"`
	GasLimit         hexutil.Uint64        `json:"gasLimit"`
	GasUsed          hexutil.Uint64        `json:"gasUsed"`
	Timestamp        hexutil.Uint64        `json:"timestamp"`
	ExtraData        hexutil.Bytes         `json:"extraData"`
	MixHash          common.Hash           `json:"mixHash"`
	Nonce            *gethtypes.BlockNonce `json:"nonce"`
	BaseFeePerGas    *hexutil.Big          `json:"baseFeePerGas,omitempty"`
	WithdrawalsRoot  *common.Hash          `json:"withdrawalsRoot,omitempty"`
	Size             *hexutil.Uint64       `json:"size,omitempty"`
	Uncles           []common.Hash         `json:"uncles"`
	Transactions     []Transaction         `json:"transactions"`
}

// Transaction is a transaction object as returned by the node, including
// its position in the chain when mined.
type Transaction struct {
	Hash                 common.Hash           `json:"hash"`
	Nonce                hexutil.Uint64        `json:"nonce"`
	BlockHash            *common.Hash          `json:"blockHash"`
	BlockNumber          *hexutil.Big          `json:"blockNumber"`
	TransactionIndex     *hexutil.Uint64       `json:"transactionIndex"`
	From                 common.Address        `json:"from"`
	To                   *common.Address       `json:"to"`
	Value                *hexutil.Big          `json:"value"`
	GasPrice             *hexutil.Big          `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big          `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big          `json:"maxPriorityFeePerGas,omitempty"`
	Gas                  hexutil.Uint64        `json:"gas"`
	Input                hexutil.Bytes         `json:"input"`
	V                    *hexutil.Big          `json:"v"`
	R                    *hexutil.Big          `json:"r"`
	S                    *hexutil.Big          `json:"s"`
	Type                 *hexutil.Uint64       `json:"type,omitempty"`
	ChainID              *hexutil.Big          `json:"chainId,omitempty"`
	AccessList           *gethtypes.AccessList `json:"accessList,omitempty"`
}

// IsContractCreation reports whether the transaction deploys a contract.
func (tx *Transaction) IsContractCreation() bool {
	return tx.To == nil
}

// TxHashes returns the hashes of the block's transactions in block order.
func (b *Block) TxHashes() []common.Hash {
	hashes := make([]common.Hash, len(b.Transactions))
	for i := range b.Transactions {
		hashes[i] = b.Transactions[i].Hash
	}
	return hashes
}
