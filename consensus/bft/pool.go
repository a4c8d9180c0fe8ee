package bft

import (
	"sort"
	"sync"

	"github.com/tos-network/gaudit/core/types"
)

// Proposal is a pooled block awaiting quorum. The block and its approvals are
// owned by the proposal and only touched under mu.
type Proposal struct {
	ID uint64

	mu        sync.Mutex
	block     *types.Block
	approvals map[string]string // validator id -> hex signature
	done      bool
}

// View returns the read projection of the proposal.
func (p *Proposal) View(quorum int) PendingView {
	p.mu.Lock()
	defer p.mu.Unlock()
	signers := make([]string, 0, len(p.approvals))
	for id := range p.approvals {
		signers = append(signers, id)
	}
	sort.Strings(signers)
	return PendingView{
		ID:             p.ID,
		Index:          p.block.Index,
		Hash:           p.block.Hash,
		Stage:          p.block.StageName,
		ProposedBy:     p.block.Leader,
		Signers:        signers,
		SignatureCount: len(signers),
		QuorumRequired: quorum,
	}
}

// Block returns a copy of the proposed block.
func (p *Proposal) Block() *types.Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.block.Copy()
}

// ProposalPool holds the proposals awaiting quorum, keyed by a monotonically
// increasing id that is never reused.
type ProposalPool struct {
	mu        sync.RWMutex
	nextID    uint64
	proposals map[uint64]*Proposal
}

func NewProposalPool() *ProposalPool {
	return &ProposalPool{
		nextID:    1,
		proposals: make(map[uint64]*Proposal),
	}
}

// Add pools block under a fresh id.
func (p *ProposalPool) Add(block *types.Block) *Proposal {
	p.mu.Lock()
	defer p.mu.Unlock()
	prop := &Proposal{
		ID:        p.nextID,
		block:     block,
		approvals: make(map[string]string),
	}
	p.nextID++
	p.proposals[prop.ID] = prop
	return prop
}

// Get returns the proposal with the given id.
func (p *ProposalPool) Get(id uint64) (*Proposal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prop, ok := p.proposals[id]
	return prop, ok
}

// Remove drops the proposal with the given id.
func (p *ProposalPool) Remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.proposals, id)
}

// Len returns the number of pooled proposals.
func (p *ProposalPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.proposals)
}

// List returns the pooled proposals ordered by id.
func (p *ProposalPool) List() []*Proposal {
	p.mu.RLock()
	list := make([]*Proposal, 0, len(p.proposals))
	for _, prop := range p.proposals {
		list = append(list, prop)
	}
	p.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
