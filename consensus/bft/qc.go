package bft

import (
	"encoding/hex"
	"sort"

	"github.com/tos-network/gaudit/common"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/validator"
)

// Attestation is a single verified validator signature.
type Attestation struct {
	Validator string
	Signature string
}

// QC is the quorum certificate assembled from the verified approvals of a
// block.
type QC struct {
	Index        uint64
	BlockHash    common.Hash
	Required     int
	Validators   int
	Attestations []Attestation
}

// Collected returns the number of verified signatures.
func (qc *QC) Collected() int { return len(qc.Attestations) }

// Verify checks that the certificate reaches the quorum threshold.
func (qc *QC) Verify() error {
	if qc == nil || qc.Required == 0 || len(qc.Attestations) < qc.Required {
		return ErrInsufficientQuorum
	}
	return nil
}

// Signatures returns the verified approvals keyed by validator id.
func (qc *QC) Signatures() map[string]string {
	sigs := make(map[string]string, len(qc.Attestations))
	for _, a := range qc.Attestations {
		sigs[a.Validator] = a.Signature
	}
	return sigs
}

// Certificate converts the QC into the block certificate with status.
func (qc *QC) Certificate(status, reason string) *types.Certificate {
	return &types.Certificate{
		Status:         status,
		QRequired:      qc.Required,
		QCollected:     qc.Collected(),
		ValidatorCount: qc.Validators,
		Reason:         reason,
		Consensus:      status == types.StatusAccepted,
	}
}

// BuildQC verifies every approval against the block hash with the signer's
// registered key and keeps the pairs that verify. Approvals from identities
// outside the validator set, or with undecodable signatures, are dropped.
func BuildQC(reg *validator.Registry, block *types.Block, approvals map[string]string) *QC {
	qc := &QC{
		Index:      block.Index,
		BlockHash:  block.Hash,
		Required:   reg.Threshold(),
		Validators: reg.Size(),
	}
	msg := block.SigningPayload()
	for id, sigHex := range approvals {
		v, ok := reg.Validator(id)
		if !ok {
			continue
		}
		sig, err := hex.DecodeString(sigHex)
		if err != nil {
			continue
		}
		if v.Verify(msg, sig) {
			qc.Attestations = append(qc.Attestations, Attestation{Validator: id, Signature: sigHex})
		}
	}
	sort.Slice(qc.Attestations, func(i, j int) bool {
		return qc.Attestations[i].Validator < qc.Attestations[j].Validator
	})
	return qc
}
