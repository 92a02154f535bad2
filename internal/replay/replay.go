// Package replay re-executes signed transactions on a forked dev node.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/airchains-network/gethrpc/eth"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"
)

// ErrHashMismatch is returned when the node reports a different hash than
// the one of the submitted bytes.
var ErrHashMismatch = errors.New("transaction hash mismatch")

// Fork is the point the dev node is reset to before replaying.
type Fork struct {
	UpstreamURL string
	BlockNumber uint64
	// BaseFee, when set, is applied to the first mined block.
	BaseFee *uint256.Int
}

// Replayer queues raw transactions and replays them in insertion order, one
// block per transaction.
type Replayer struct {
	client *eth.GethClient
	log    *logrus.Logger

	mutex sync.Mutex
	txs   [][]byte
}

func NewReplayer(client *eth.GethClient, log *logrus.Logger) *Replayer {
	return &Replayer{client: client, log: log}
}

// AddTx queues a raw signed transaction after checking that it decodes.
func (r *Replayer) AddTx(raw []byte) error {
	if _, err := decode(raw); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.txs = append(r.txs, raw)
	return nil
}

// AddTxHex queues a 0x-prefixed or bare hex transaction.
func (r *Replayer) AddTxHex(txHex string) error {
	txHex = strings.TrimSpace(txHex)
	if !strings.HasPrefix(txHex, "0x") {
		txHex = "0x" + txHex
	}
	raw, err := hexutil.Decode(txHex)
	if err != nil {
		return fmt.Errorf("invalid transaction hex: %w", err)
	}
	return r.AddTx(raw)
}

// Pending returns the number of queued transactions.
func (r *Replayer) Pending() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.txs)
}

// Replay resets the node to fork and replays the queue. It stops at the
// first failure, leaving the failed transaction and the ones after it
// queued, and returns the hashes of the transactions replayed so far.
func (r *Replayer) Replay(ctx context.Context, fork Fork) ([]common.Hash, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.client.Reset(ctx, fork.UpstreamURL, fork.BlockNumber); err != nil {
		return nil, fmt.Errorf("failed to reset fork: %w", err)
	}
	r.log.Infof("Reset fork to block %d of %s", fork.BlockNumber, fork.UpstreamURL)

	if fork.BaseFee != nil {
		if err := r.client.SetNextBlockBaseFeePerGas(ctx, fork.BaseFee); err != nil {
			return nil, fmt.Errorf("failed to set base fee: %w", err)
		}
	}

	total := len(r.txs)
	hashes := make([]common.Hash, 0, total)
	for i, raw := range r.txs {
		hash, err := r.replayTx(ctx, raw)
		if err != nil {
			r.txs = r.txs[i:]
			r.log.Warnf("Replay stopped at tx %d of %d: %v", i, total, err)
			return hashes, fmt.Errorf("tx %d: %w", i, err)
		}
		hashes = append(hashes, hash)
		r.log.Infof("Replayed tx %s", hash.Hex())
	}
	r.txs = r.txs[:0]
	return hashes, nil
}

func (r *Replayer) replayTx(ctx context.Context, raw []byte) (common.Hash, error) {
	tx, err := decode(raw)
	if err != nil {
		return common.Hash{}, err
	}
	sender, err := gethtypes.Sender(signerFor(tx), tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to recover sender: %w", err)
	}

	if err := r.client.SetNonce(ctx, sender, uint256.NewInt(tx.Nonce())); err != nil {
		return common.Hash{}, err
	}
	hash, err := r.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, err
	}
	if want := keccak256(raw); hash != want {
		return common.Hash{}, fmt.Errorf("%w: node returned %s, expected %s", ErrHashMismatch, hash.Hex(), want.Hex())
	}
	if err := r.client.Mine(ctx); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func decode(raw []byte) (*gethtypes.Transaction, error) {
	var tx gethtypes.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

func signerFor(tx *gethtypes.Transaction) gethtypes.Signer {
	if !tx.Protected() {
		return gethtypes.HomesteadSigner{}
	}
	return gethtypes.LatestSignerForChainID(tx.ChainId())
}

func keccak256(data []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return common.BytesToHash(h.Sum(nil))
}
