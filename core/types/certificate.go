package types

// Certificate status values.
const (
	StatusGenesis  = "GENESIS"
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

// Certificate records the quorum outcome of a block. It is not part of the
// header and may change while signatures accumulate.
type Certificate struct {
	Status         string `json:"status"`
	QRequired      int    `json:"q_required"`
	QCollected     int    `json:"q_collected"`
	ValidatorCount int    `json:"validators"`
	Reason         string `json:"reason,omitempty"`
	Consensus      bool   `json:"consensus"`
}

// Copy returns a copy of c, nil-safe.
func (c *Certificate) Copy() *Certificate {
	if c == nil {
		return nil
	}
	cpy := *c
	return &cpy
}

// Final reports whether the certificate closes the block, either by quorum,
// by administrative rejection or as the genesis marker.
func (c *Certificate) Final() bool {
	if c == nil {
		return false
	}
	return c.Status == StatusAccepted || c.Status == StatusRejected || c.Status == StatusGenesis
}
