package db

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/airchains-network/gethrpc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Key prefixes of the witness store. Every record is keyed by block hash,
// proofs and code additionally by account address.
var (
	blockPrefix    = []byte("block-")
	tracePrefix    = []byte("trace-")
	prestatePrefix = []byte("prestate-")
	proofPrefix    = []byte("proof-")
	codePrefix     = []byte("code-")
	numberPrefix   = []byte("number-")
)

// WitnessStore persists the RPC responses a block witness is built from, as
// JSON, so the block can be processed again without a node.
type WitnessStore struct {
	db DB
}

func NewWitnessStore(db DB) *WitnessStore {
	return &WitnessStore{db: db}
}

// OpenWitnessStore opens a LevelDB backed store at path.
func OpenWitnessStore(path string) (*WitnessStore, error) {
	ldb, err := NewLevelDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open witness db: %w", err)
	}
	return NewWitnessStore(ldb), nil
}

func (s *WitnessStore) Close() error {
	return s.db.Close()
}

func blockKey(prefix []byte, hash common.Hash) []byte {
	return append(append([]byte{}, prefix...), hash[:]...)
}

func accountKey(prefix []byte, block common.Hash, account common.Address) []byte {
	return append(blockKey(prefix, block), account[:]...)
}

func numberKey(number uint64) []byte {
	key := append([]byte{}, numberPrefix...)
	return binary.BigEndian.AppendUint64(key, number)
}

func (s *WitnessStore) put(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return s.db.Put(key, data)
}

// get decodes the value at key into v and reports whether it was present.
func (s *WitnessStore) get(key []byte, v interface{}) (bool, error) {
	data, err := s.db.Get(key)
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode stored record: %w", err)
	}
	return true, nil
}

// PutBlock stores the block under its hash and indexes it by number.
func (s *WitnessStore) PutBlock(block *types.Block) error {
	if block.Hash == nil || block.Number == nil {
		return fmt.Errorf("cannot store pending block")
	}
	if err := s.put(blockKey(blockPrefix, *block.Hash), block); err != nil {
		return err
	}
	return s.db.Put(numberKey(block.Number.ToInt().Uint64()), block.Hash[:])
}

// Block returns the stored block, or nil if unknown.
func (s *WitnessStore) Block(hash common.Hash) (*types.Block, error) {
	var block types.Block
	ok, err := s.get(blockKey(blockPrefix, hash), &block)
	if !ok {
		return nil, err
	}
	return &block, nil
}

// BlockHash resolves a stored block number to its hash.
func (s *WitnessStore) BlockHash(number uint64) (common.Hash, bool, error) {
	data, err := s.db.Get(numberKey(number))
	if err != nil || data == nil {
		return common.Hash{}, false, err
	}
	return common.BytesToHash(data), true, nil
}

func (s *WitnessStore) PutTraces(block common.Hash, traces []*types.GethExecTrace) error {
	return s.put(blockKey(tracePrefix, block), traces)
}

func (s *WitnessStore) Traces(block common.Hash) ([]*types.GethExecTrace, error) {
	var traces []*types.GethExecTrace
	_, err := s.get(blockKey(tracePrefix, block), &traces)
	return traces, err
}

func (s *WitnessStore) PutPrestates(block common.Hash, prestates []types.PrestateTrace) error {
	return s.put(blockKey(prestatePrefix, block), prestates)
}

func (s *WitnessStore) Prestates(block common.Hash) ([]types.PrestateTrace, error) {
	var prestates []types.PrestateTrace
	_, err := s.get(blockKey(prestatePrefix, block), &prestates)
	return prestates, err
}

// PutProof stores an account proof taken for the witness of block.
func (s *WitnessStore) PutProof(block common.Hash, proof *types.AccountProof) error {
	return s.put(accountKey(proofPrefix, block, proof.Address), proof)
}

func (s *WitnessStore) Proof(block common.Hash, account common.Address) (*types.AccountProof, error) {
	var proof types.AccountProof
	ok, err := s.get(accountKey(proofPrefix, block, account), &proof)
	if !ok {
		return nil, err
	}
	return &proof, nil
}

// Proofs returns every account proof stored for block, in address order.
func (s *WitnessStore) Proofs(block common.Hash) ([]*types.AccountProof, error) {
	keys, err := s.db.Keys(blockKey(proofPrefix, block))
	if err != nil {
		return nil, err
	}
	proofs := make([]*types.AccountProof, 0, len(keys))
	for _, key := range keys {
		var proof types.AccountProof
		if _, err := s.get(key, &proof); err != nil {
			return nil, err
		}
		proofs = append(proofs, &proof)
	}
	return proofs, nil
}

// PutCode stores the code of account as read for the witness of block.
func (s *WitnessStore) PutCode(block common.Hash, account common.Address, code []byte) error {
	return s.put(accountKey(codePrefix, block, account), hexutil.Bytes(code))
}

// Code returns the stored code, or nil if unknown.
func (s *WitnessStore) Code(block common.Hash, account common.Address) ([]byte, error) {
	var code hexutil.Bytes
	if _, err := s.get(accountKey(codePrefix, block, account), &code); err != nil {
		return nil, err
	}
	return code, nil
}
