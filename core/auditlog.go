package core

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/log"
)

// AuditLog records administratively rejected blocks outside the chain. Each
// entry links to the chain tip it was proposed on, so entries are not linked
// to one another.
type AuditLog struct {
	mu      sync.RWMutex
	blocks  []*types.Block
	store   Store

	persistErr error
	metrics    *chainMetrics
	log     log.Logger
}

// NewAuditLog loads the rejected blocks held by store. An unreadable store is
// logged and the log starts empty.
func NewAuditLog(store Store, reg prometheus.Registerer) (*AuditLog, error) {
	m, err := newChainMetrics(reg, "auditlog")
	if err != nil {
		return nil, err
	}
	l := &AuditLog{store: store, metrics: m, log: log.New("module", "auditlog")}
	if store != nil {
		blocks, err := store.Load()
		if err != nil {
			l.log.Error("Stored audit log unreadable, starting empty", "err", fmt.Errorf("%w: %v", ErrPersistence, err))
		} else {
			l.blocks = blocks
		}
	}
	l.metrics.height.Set(float64(len(l.blocks)))
	return l, nil
}

// AddBlock records a rejected block.
func (l *AuditLog) AddBlock(b *types.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blocks = append(l.blocks, b)
	l.metrics.appended.WithLabelValues(b.Status()).Inc()
	l.metrics.height.Set(float64(len(l.blocks)))
	l.persist()
	return nil
}

// persist must be called with the write lock held.
func (l *AuditLog) persist() {
	if l.store == nil {
		return
	}
	if err := l.store.Commit(l.blocks); err != nil {
		l.persistErr = fmt.Errorf("%w: %v", ErrPersistence, err)
		l.metrics.persistFailures.Inc()
		l.log.Error("Failed to persist audit log", "entries", len(l.blocks), "err", err)
		return
	}
	l.persistErr = nil
}

// Flush writes the log to the store, including entries a failed write
// missed, and reports the outcome.
func (l *AuditLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.blocks) == 0 {
		return nil
	}
	l.persist()
	return l.persistErr
}

// LastPersistError returns the error of the most recent write, if it failed.
func (l *AuditLog) LastPersistError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.persistErr
}

// Blocks returns a deep copy of the recorded entries.
func (l *AuditLog) Blocks() []*types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*types.Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.Copy()
	}
	return out
}

// Len returns the number of recorded entries.
func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Close closes the backing store.
func (l *AuditLog) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}
