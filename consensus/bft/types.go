package bft

import (
	"errors"
	"fmt"

	"github.com/tos-network/gaudit/common"
)

var (
	ErrNotFound           = errors.New("bft: pending proposal not found")
	ErrUnknownValidator   = errors.New("bft: validator not found")
	ErrDuplicateSignature = errors.New("bft: validator already signed")
	ErrStaleProposal      = errors.New("bft: proposal does not extend the chain tip")
	ErrInsufficientQuorum = errors.New("bft: insufficient quorum")
	ErrNilTransaction     = errors.New("bft: nil transaction")
)

// Result statuses returned by Sign and Reject.
const (
	StatusWaiting  = "waiting"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// DefaultRejectReason is recorded when Reject is called without a reason.
const DefaultRejectReason = "rejected by authority"

// Result reports the outcome of a Sign or Reject call.
type Result struct {
	Status     string      `json:"status"`
	Message    string      `json:"message"`
	ProposalID uint64      `json:"proposal_id"`
	Index      uint64      `json:"index"`
	Hash       common.Hash `json:"hash"`
	Collected  int         `json:"q_collected"`
	Required   int         `json:"q_required"`
}

// Progress renders the collected/required counters, e.g. "3/4".
func (r *Result) Progress() string {
	return fmt.Sprintf("%d/%d", r.Collected, r.Required)
}

// Final reports whether the proposal left the pool.
func (r *Result) Final() bool {
	return r.Status == StatusAccepted || r.Status == StatusRejected
}

// PendingView is the read projection of a pooled proposal.
type PendingView struct {
	ID             uint64      `json:"id"`
	Index          uint64      `json:"index"`
	Hash           common.Hash `json:"hash"`
	Stage          string      `json:"stage_name"`
	ProposedBy     string      `json:"proposed_by"`
	Signers        []string    `json:"approvals"`
	SignatureCount int         `json:"approvals_count"`
	QuorumRequired int         `json:"q_required"`
}
