// Package core implements the hash-linked audit ledger and its persistence.
package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/gaudit/common"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/log"
	"github.com/tos-network/gaudit/validator"
)

const hashCacheLimit = 1024

// BlockChain is the append-only sequence of finalized blocks. Every append is
// written through to the store; a failed write is logged and counted but the
// in-memory chain still advances.
type BlockChain struct {
	mu     sync.RWMutex
	blocks []*types.Block
	store  Store

	hashCache *lru.Cache // block hash -> index

	persistErr error
	metrics    *chainMetrics
	log        log.Logger
	now        func() time.Time
}

// NewBlockChain loads the chain from store. When nothing was persisted, or
// the persisted data cannot be read, a fresh genesis chain is created. A nil
// store keeps the chain in memory only.
func NewBlockChain(store Store, reg prometheus.Registerer) (*BlockChain, error) {
	m, err := newChainMetrics(reg, "chain")
	if err != nil {
		return nil, err
	}
	cache, _ := lru.New(hashCacheLimit)
	bc := &BlockChain{
		store:     store,
		hashCache: cache,
		metrics:   m,
		log:       log.New("module", "chain"),
		now:       time.Now,
	}
	var blocks []*types.Block
	if store != nil {
		blocks, err = store.Load()
		if err == nil {
			err = checkIndices(blocks)
		}
		if err != nil {
			bc.log.Error("Stored chain unreadable, starting a new chain", "err", fmt.Errorf("%w: %v", ErrPersistence, err))
			blocks = nil
		}
	}
	if len(blocks) == 0 {
		if err := bc.Genesis(); err != nil {
			return nil, err
		}
		return bc, nil
	}
	bc.blocks = blocks
	for _, b := range blocks {
		bc.hashCache.Add(b.Hash, b.Index)
	}
	bc.metrics.height.Set(float64(len(blocks)))
	if !bc.IsValid() {
		bc.log.Warn("Loaded chain has broken hash links", "blocks", len(blocks))
	}
	bc.log.Info("Loaded chain", "blocks", len(blocks), "head", bc.blocks[len(blocks)-1].Hash)
	return bc, nil
}

func checkIndices(blocks []*types.Block) error {
	for i, b := range blocks {
		if b == nil {
			return fmt.Errorf("null block at position %d", i)
		}
		if b.Index != uint64(i) {
			return fmt.Errorf("block at position %d has index %d", i, b.Index)
		}
	}
	return nil
}

// Genesis appends and persists the index-0 block on an empty chain.
func (bc *BlockChain) Genesis() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if len(bc.blocks) != 0 {
		return ErrChainNotEmpty
	}
	g := NewGenesisBlock(bc.now())
	bc.append(g)
	bc.log.Info("Created genesis block", "hash", g.Hash)
	return nil
}

// AddBlock appends b to the chain and persists it. The block must link to the
// current tip; ownership of b passes to the chain.
func (bc *BlockChain) AddBlock(b *types.Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	last := bc.blocks[len(bc.blocks)-1]
	if b.Index != uint64(len(bc.blocks)) || b.PreviousHash != last.Hash {
		return fmt.Errorf("%w: block %d prev %s, tip %d hash %s", ErrInvalidLink, b.Index, b.PreviousHash.TerminalString(), last.Index, last.Hash.TerminalString())
	}
	bc.append(b)
	return nil
}

// append must be called with the write lock held.
func (bc *BlockChain) append(b *types.Block) {
	bc.blocks = append(bc.blocks, b)
	bc.hashCache.Add(b.Hash, b.Index)
	bc.metrics.appended.WithLabelValues(b.Status()).Inc()
	bc.metrics.height.Set(float64(len(bc.blocks)))
	bc.persist()
}

// persist must be called with the write lock held.
func (bc *BlockChain) persist() {
	if bc.store == nil {
		return
	}
	start := time.Now()
	err := bc.store.Commit(bc.blocks)
	bc.metrics.persistTime.Observe(time.Since(start).Seconds())
	if err != nil {
		bc.persistErr = fmt.Errorf("%w: %v", ErrPersistence, err)
		bc.metrics.persistFailures.Inc()
		bc.log.Error("Failed to persist chain", "blocks", len(bc.blocks), "err", err)
		return
	}
	bc.persistErr = nil
	bc.log.Debug("Persisted chain", "blocks", len(bc.blocks))
}

// Flush writes the chain to the store, including blocks a failed write
// missed, and reports the outcome.
func (bc *BlockChain) Flush() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.persist()
	return bc.persistErr
}

// LastPersistError returns the error of the most recent write, if it failed.
func (bc *BlockChain) LastPersistError() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.persistErr
}

// Head returns the chain length and the hash of the last block.
func (bc *BlockChain) Head() (uint64, common.Hash) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return uint64(len(bc.blocks)), bc.blocks[len(bc.blocks)-1].Hash
}

// LastHash returns the hash of the last block.
func (bc *BlockChain) LastHash() common.Hash {
	_, h := bc.Head()
	return h
}

// Len returns the number of blocks, genesis included.
func (bc *BlockChain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.blocks)
}

// Blocks returns a deep copy of the chain.
func (bc *BlockChain) Blocks() []*types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	out := make([]*types.Block, len(bc.blocks))
	for i, b := range bc.blocks {
		out[i] = b.Copy()
	}
	return out
}

// BlockByIndex returns a copy of the block at index, or nil.
func (bc *BlockChain) BlockByIndex(index uint64) *types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if index >= uint64(len(bc.blocks)) {
		return nil
	}
	return bc.blocks[index].Copy()
}

// BlockByHash returns a copy of the block with the given hash, or nil.
func (bc *BlockChain) BlockByHash(hash common.Hash) *types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if idx, ok := bc.hashCache.Get(hash); ok {
		if i := idx.(uint64); i < uint64(len(bc.blocks)) && bc.blocks[i].Hash == hash {
			return bc.blocks[i].Copy()
		}
	}
	for _, b := range bc.blocks {
		if b.Hash == hash {
			bc.hashCache.Add(hash, b.Index)
			return b.Copy()
		}
	}
	return nil
}

// IsValid reports whether every block links to its predecessor's hash. It
// does not recompute hashes or verify signatures; see VerifyDeep.
func (bc *BlockChain) IsValid() bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	for i := 1; i < len(bc.blocks); i++ {
		if bc.blocks[i].PreviousHash != bc.blocks[i-1].Hash {
			return false
		}
	}
	return true
}

// VerifyDeep checks linkage, recomputes every header hash and verifies every
// embedded signature against reg. It returns the ids of the signers whose
// signatures could not be verified along with all problems found.
func (bc *BlockChain) VerifyDeep(reg *validator.Registry) ([]string, error) {
	blocks := bc.Blocks()

	var (
		errs       []error
		unverified = mapset.NewSet()
	)
	for i, b := range blocks {
		if i > 0 && b.PreviousHash != blocks[i-1].Hash {
			errs = append(errs, fmt.Errorf("%w: block %d", ErrInvalidLink, b.Index))
		}
		if !b.HashValid() {
			errs = append(errs, fmt.Errorf("%w: block %d", ErrHashMismatch, b.Index))
		}
		verified := 0
		for id, sig := range b.Signatures {
			if !verifySignature(reg, b, id, sig) {
				unverified.Add(id)
				errs = append(errs, fmt.Errorf("%w: block %d signer %s", ErrUnverifiableSignature, b.Index, id))
				continue
			}
			verified++
		}
		if b.Status() == types.StatusAccepted && verified < b.Certificate.QRequired {
			errs = append(errs, fmt.Errorf("%w: block %d has %d/%d", ErrInsufficientSignatures, b.Index, verified, b.Certificate.QRequired))
		}
	}
	signers := make([]string, 0, unverified.Cardinality())
	for id := range unverified.Iter() {
		signers = append(signers, id.(string))
	}
	sort.Strings(signers)
	return signers, errors.Join(errs...)
}

func verifySignature(reg *validator.Registry, b *types.Block, id, sigHex string) bool {
	v, ok := reg.Validator(id)
	if !ok {
		return false
	}
	sig := common.FromHex(sigHex)
	if len(sig) == 0 {
		return false
	}
	return v.Verify(b.SigningPayload(), sig)
}

// Close closes the backing store.
func (bc *BlockChain) Close() error {
	if bc.store == nil {
		return nil
	}
	return bc.store.Close()
}
