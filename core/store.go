package core

import (
	"fmt"

	"github.com/tos-network/gaudit/core/rawdb"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/log"
	"github.com/tos-network/gaudit/tosdb"
)

// Store makes a block sequence durable.
type Store interface {
	// Load returns the persisted blocks in order. An empty result means
	// nothing was persisted yet.
	Load() ([]*types.Block, error)

	// Commit persists blocks, whose last element is the newest block. The
	// elements before it are unchanged since the previous Commit unless the
	// sequence was restarted from a single block. Blocks appended by a
	// failed Commit are written again by the next one.
	Commit(blocks []*types.Block) error

	// Close releases the resources held by the store.
	Close() error
}

// DatabaseStore persists a block sequence into a key-value database as an
// append-only log of per-block entries keyed by position. Every interval
// blocks the whole sequence is written as one compressed snapshot and the
// per-block entries it covers are removed.
type DatabaseStore struct {
	db       tosdb.KeyValueStore
	interval uint64
	owned    bool

	written  int    // number of blocks durably stored
	snapHead uint64 // position of the last block covered by the snapshot
	hasSnap  bool
}

// NewDatabaseStore creates a store over db. A zero interval disables
// snapshots. When owned is set, Close also closes db.
func NewDatabaseStore(db tosdb.KeyValueStore, interval uint64, owned bool) *DatabaseStore {
	return &DatabaseStore{db: db, interval: interval, owned: owned}
}

func (s *DatabaseStore) Load() ([]*types.Block, error) {
	head, ok, err := rawdb.ReadHeadIndex(s.db)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	blocks, snapHead, hasSnap, err := rawdb.ReadSnapshot(s.db)
	if err != nil {
		return nil, err
	}
	from := uint64(0)
	if hasSnap {
		from = snapHead + 1
	}
	tail, err := rawdb.ReadBlocks(s.db, from)
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, tail...)
	if uint64(len(blocks)) != head+1 {
		return nil, fmt.Errorf("head position %d does not match %d stored blocks", head, len(blocks))
	}
	s.written, s.snapHead, s.hasSnap = len(blocks), snapHead, hasSnap
	return blocks, nil
}

func (s *DatabaseStore) Commit(blocks []*types.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	written, snapHead, hasSnap := s.written, s.snapHead, s.hasSnap
	if len(blocks) == 1 || written == 0 || written > len(blocks) {
		if err := s.reset(batch); err != nil {
			return err
		}
		written, snapHead, hasSnap = 0, 0, false
	}
	pos := uint64(len(blocks) - 1)
	snapshot := s.interval > 0 && (pos+1)%s.interval == 0
	if snapshot {
		if err := rawdb.WriteSnapshot(batch, blocks); err != nil {
			return err
		}
		from := uint64(0)
		if hasSnap {
			from = snapHead + 1
		}
		for i := from; i < pos; i++ {
			if err := rawdb.DeleteBlock(batch, i); err != nil {
				return err
			}
		}
	} else {
		// Everything past the last successful write, which is more than
		// the newest block after a failed Commit.
		from := uint64(written)
		if from > pos {
			from = pos
		}
		for i := from; i <= pos; i++ {
			if err := rawdb.WriteBlock(batch, i, blocks[i]); err != nil {
				return err
			}
		}
		if from < pos {
			log.Warn("Rewriting blocks missed by a failed write", "from", from, "head", pos)
		}
	}
	if err := rawdb.WriteHeadIndex(batch, pos); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.written, s.snapHead, s.hasSnap = len(blocks), snapHead, hasSnap
	if snapshot {
		s.snapHead, s.hasSnap = pos, true
		log.Debug("Wrote snapshot", "head", pos, "blocks", len(blocks))
	}
	return nil
}

// reset queues the removal of everything a previous chain left behind.
func (s *DatabaseStore) reset(batch tosdb.Batch) error {
	indices, err := rawdb.ReadBlockIndices(s.db)
	if err != nil {
		return err
	}
	for _, i := range indices {
		if err := rawdb.DeleteBlock(batch, i); err != nil {
			return err
		}
	}
	return rawdb.DeleteSnapshot(batch)
}

func (s *DatabaseStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
