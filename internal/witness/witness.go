// Package witness gathers, for one block, everything an offline proving
// pipeline reads from the node: the block, its execution and prestate
// traces, and the code and storage proofs of every touched account.
package witness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airchains-network/gethrpc/db"
	"github.com/airchains-network/gethrpc/eth"
	"github.com/airchains-network/gethrpc/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrTraceMismatch is returned when the node returns a different number of
// traces than the block has transactions.
var ErrTraceMismatch = errors.New("trace count does not match transaction count")

const defaultConcurrency = 8

// Witness is the node data of one block.
type Witness struct {
	Block     *types.Block
	Traces    []*types.GethExecTrace
	Prestates []types.PrestateTrace
	// Proofs and Codes are taken at the parent block, one per touched
	// account, in address order.
	Proofs []*types.AccountProof
	Codes  map[common.Address]hexutil.Bytes
}

// Fetcher builds witnesses with a shared client.
type Fetcher struct {
	client      *eth.GethClient
	store       *db.WitnessStore
	concurrency int
	log         *logrus.Logger
}

type Option func(*Fetcher)

// WithStore persists every fetched witness.
func WithStore(store *db.WitnessStore) Option {
	return func(f *Fetcher) { f.store = store }
}

// WithConcurrency bounds the number of account requests in flight.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

func NewFetcher(client *eth.GethClient, log *logrus.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		concurrency: defaultConcurrency,
		log:         log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch builds the witness of the block at number.
func (f *Fetcher) Fetch(ctx context.Context, number rpc.BlockNumber) (*Witness, error) {
	start := time.Now()

	block, err := f.client.BlockByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block: %w", err)
	}
	if block.Hash == nil || block.Number == nil {
		return nil, fmt.Errorf("block %s is pending", number)
	}
	hash := *block.Hash
	log := f.log.WithFields(logrus.Fields{
		"block": block.Number.ToInt().Uint64(),
		"hash":  hash.Hex(),
		"txs":   len(block.Transactions),
	})

	w := &Witness{Block: block}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		traces, err := f.client.TraceBlockByHash(gctx, hash)
		if err != nil {
			return fmt.Errorf("failed to trace block: %w", err)
		}
		w.Traces = traces
		return nil
	})
	g.Go(func() error {
		prestates, err := f.client.TraceBlockPrestateByHash(gctx, hash)
		if err != nil {
			return fmt.Errorf("failed to trace block prestate: %w", err)
		}
		w.Prestates = prestates
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(w.Traces) != len(block.Transactions) {
		return nil, fmt.Errorf("%w: %d traces for %d transactions", ErrTraceMismatch, len(w.Traces), len(block.Transactions))
	}
	if len(w.Prestates) != len(block.Transactions) {
		return nil, fmt.Errorf("%w: %d prestates for %d transactions", ErrTraceMismatch, len(w.Prestates), len(block.Transactions))
	}

	if err := f.fetchAccounts(ctx, w, parentNumber(block)); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"accounts": len(w.Proofs),
		"elapsed":  time.Since(start),
	}).Info("Fetched block witness")

	if f.store != nil {
		if err := f.save(w); err != nil {
			return nil, fmt.Errorf("failed to store witness: %w", err)
		}
		log.Debug("Stored block witness")
	}
	return w, nil
}

func parentNumber(block *types.Block) rpc.BlockNumber {
	n := block.Number.ToInt().Int64()
	if n == 0 {
		return 0
	}
	return rpc.BlockNumber(n - 1)
}

// fetchAccounts reads code and a storage proof for every touched account.
func (f *Fetcher) fetchAccounts(ctx context.Context, w *Witness, at rpc.BlockNumber) error {
	touched := types.TouchedStorage(w.Prestates...)
	accounts := sortedAccounts(touched)

	proofs := make([]*types.AccountProof, len(accounts))
	codes := make([]hexutil.Bytes, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, account := range accounts {
		g.Go(func() error {
			code, err := f.client.Code(gctx, account, at)
			if err != nil {
				return fmt.Errorf("failed to fetch code of %s: %w", account.Hex(), err)
			}
			codes[i] = code
			return nil
		})
		g.Go(func() error {
			proof, err := f.client.Proof(gctx, account, touched[account], at)
			if err != nil {
				return fmt.Errorf("failed to fetch proof of %s: %w", account.Hex(), err)
			}
			proofs[i] = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.Proofs = proofs
	w.Codes = make(map[common.Address]hexutil.Bytes, len(accounts))
	for i, account := range accounts {
		w.Codes[account] = codes[i]
	}
	return nil
}

func sortedAccounts(touched map[common.Address][]*uint256.Int) []common.Address {
	set := make(types.PrestateTrace, len(touched))
	for addr := range touched {
		set[addr] = nil
	}
	return set.Addresses()
}

func (f *Fetcher) save(w *Witness) error {
	hash := *w.Block.Hash
	if err := f.store.PutBlock(w.Block); err != nil {
		return err
	}
	if err := f.store.PutTraces(hash, w.Traces); err != nil {
		return err
	}
	if err := f.store.PutPrestates(hash, w.Prestates); err != nil {
		return err
	}
	for _, proof := range w.Proofs {
		if err := f.store.PutProof(hash, proof); err != nil {
			return err
		}
	}
	for account, code := range w.Codes {
		if err := f.store.PutCode(hash, account, code); err != nil {
			return err
		}
	}
	return nil
}
