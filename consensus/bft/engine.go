package bft

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/gaudit/common"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/log"
	"github.com/tos-network/gaudit/validator"
)

// BlockSink receives finalized blocks.
type BlockSink interface {
	AddBlock(b *types.Block) error
}

// Ledger is the chain the engine builds on. Head returns the chain length
// and the hash of its last block as one consistent pair. AddBlock must
// refuse a block that does not link to the current tip.
type Ledger interface {
	BlockSink
	Head() (uint64, common.Hash)
}

// Engine drives proposals from creation to finalization.
type Engine struct {
	registry *validator.Registry
	ledger   Ledger
	rejects  BlockSink
	pool     *ProposalPool
	metrics  *engineMetrics
	log      log.Logger

	now func() time.Time
}

// NewEngine creates an engine over the given registry and ledger. Rejected
// blocks go to rejects, or to the ledger itself when rejects is nil. Metrics
// are registered on reg when it is non-nil.
func NewEngine(registry *validator.Registry, ledger Ledger, rejects BlockSink, reg prometheus.Registerer) (*Engine, error) {
	m, err := newEngineMetrics(reg)
	if err != nil {
		return nil, err
	}
	if rejects == nil {
		rejects = ledger
	}
	return &Engine{
		registry: registry,
		ledger:   ledger,
		rejects:  rejects,
		pool:     NewProposalPool(),
		metrics:  m,
		log:      log.New("module", "bft"),
		now:      time.Now,
	}, nil
}

// Registry returns the validator registry.
func (e *Engine) Registry() *validator.Registry { return e.registry }

// Pool returns the proposal pool.
func (e *Engine) Pool() *ProposalPool { return e.pool }

// Propose builds a block carrying tx on top of the current chain tip and
// pools it.
func (e *Engine) Propose(tx *types.Transaction) (*Proposal, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	index, prev := e.ledger.Head()
	leader := e.registry.Leader(index)
	block := types.NewBlock(index, prev, leader.ID, tx.StageName(), tx.ResponsibleID, []*types.Transaction{tx}, e.now())
	block.Certificate = &types.Certificate{
		Status:         types.StatusPending,
		QRequired:      e.registry.Threshold(),
		ValidatorCount: e.registry.Size(),
	}
	prop := e.pool.Add(block)

	e.metrics.proposals.Inc()
	e.metrics.pending.Set(float64(e.pool.Len()))
	e.log.Info("Proposed block", "id", prop.ID, "index", index, "leader", leader.ID, "stage", block.StageName, "hash", block.Hash)
	return prop, nil
}

// Sign adds the signature of validatorID to proposal id and finalizes the
// block once the verified signatures reach the quorum threshold.
func (e *Engine) Sign(id uint64, validatorID string) (*Result, error) {
	prop, err := e.acquire(id)
	if err != nil {
		return nil, err
	}
	defer prop.mu.Unlock()

	v, ok := e.registry.Validator(validatorID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownValidator, validatorID)
	}
	if _, ok := prop.approvals[validatorID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSignature, validatorID)
	}
	if err := e.checkTip(prop); err != nil {
		return nil, err
	}
	block := prop.block
	sig, err := v.Sign(block.SigningPayload())
	if err != nil {
		return nil, fmt.Errorf("bft: signing with %s: %w", validatorID, err)
	}
	prop.approvals[validatorID] = hex.EncodeToString(sig)
	e.metrics.signatures.Inc()

	qc := e.collect(prop)
	if err := qc.Verify(); err != nil {
		block.Certificate = qc.Certificate(types.StatusPending, "")
		res := e.result(StatusWaiting, prop, qc)
		res.Message = fmt.Sprintf("Signed (%s), waiting for more signatures", res.Progress())
		e.log.Debug("Collected signature", "id", prop.ID, "validator", validatorID, "progress", res.Progress())
		return res, nil
	}
	block.Certificate = qc.Certificate(types.StatusAccepted, "")
	if err := e.finalize(prop, e.ledger); err != nil {
		return nil, err
	}
	res := e.result(StatusAccepted, prop, qc)
	res.Message = "Block added to chain"
	e.log.Info("Quorum reached", "id", prop.ID, "index", block.Index, "hash", block.Hash, "signatures", res.Progress())
	return res, nil
}

// Reject finalizes proposal id administratively. The block keeps whatever
// signatures verify and carries a REJECTED certificate with reason.
func (e *Engine) Reject(id uint64, reason string) (*Result, error) {
	prop, err := e.acquire(id)
	if err != nil {
		return nil, err
	}
	defer prop.mu.Unlock()

	if err := e.checkTip(prop); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = DefaultRejectReason
	}
	qc := e.collect(prop)
	prop.block.Certificate = qc.Certificate(types.StatusRejected, reason)
	if err := e.finalize(prop, e.rejects); err != nil {
		return nil, err
	}
	res := e.result(StatusRejected, prop, qc)
	res.Message = "Block rejected: " + reason
	e.log.Warn("Rejected block", "id", prop.ID, "index", prop.block.Index, "hash", prop.block.Hash, "signatures", res.Progress(), "reason", reason)
	return res, nil
}

// Pending returns the read projection of every pooled proposal, by id.
func (e *Engine) Pending() []PendingView {
	list := e.pool.List()
	views := make([]PendingView, 0, len(list))
	q := e.registry.Threshold()
	for _, prop := range list {
		views = append(views, prop.View(q))
	}
	return views
}

// acquire looks up proposal id and returns it locked.
func (e *Engine) acquire(id uint64) (*Proposal, error) {
	prop, ok := e.pool.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	prop.mu.Lock()
	if prop.done {
		prop.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return prop, nil
}

// collect re-verifies every stored approval and records the verified set on
// the block.
func (e *Engine) collect(prop *Proposal) *QC {
	qc := BuildQC(e.registry, prop.block, prop.approvals)
	if dropped := len(prop.approvals) - qc.Collected(); dropped > 0 {
		e.metrics.dropped.Add(float64(dropped))
		e.log.Warn("Dropped unverifiable approvals", "id", prop.ID, "dropped", dropped)
	}
	prop.block.Signatures = qc.Signatures()
	return qc
}

// checkTip discards prop if its block no longer extends the chain tip.
func (e *Engine) checkTip(prop *Proposal) error {
	length, last := e.ledger.Head()
	if prop.block.Index == length && prop.block.PreviousHash == last {
		return nil
	}
	e.discard(prop)
	e.metrics.stale.Inc()
	e.log.Warn("Discarded stale proposal", "id", prop.ID, "index", prop.block.Index, "height", length, "prev", prop.block.PreviousHash, "tip", last)
	return fmt.Errorf("%w: proposal %d built on index %d, chain length %d", ErrStaleProposal, prop.ID, prop.block.Index, length)
}

// finalize hands the block to sink and retires the proposal.
func (e *Engine) finalize(prop *Proposal, sink BlockSink) error {
	if err := sink.AddBlock(prop.block); err != nil {
		e.discard(prop)
		e.metrics.stale.Inc()
		return fmt.Errorf("%w: %v", ErrStaleProposal, err)
	}
	e.discard(prop)
	e.metrics.finalized.WithLabelValues(prop.block.Certificate.Status).Inc()
	return nil
}

func (e *Engine) discard(prop *Proposal) {
	prop.done = true
	e.pool.Remove(prop.ID)
	e.metrics.pending.Set(float64(e.pool.Len()))
}

func (e *Engine) result(status string, prop *Proposal, qc *QC) *Result {
	return &Result{
		Status:     status,
		ProposalID: prop.ID,
		Index:      prop.block.Index,
		Hash:       prop.block.Hash,
		Collected:  qc.Collected(),
		Required:   qc.Required,
	}
}
