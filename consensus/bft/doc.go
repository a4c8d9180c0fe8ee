// Package bft implements the proposal pool and quorum engine of the audit
// ledger.
//
// A transaction becomes a proposal whose block is built on the current chain
// tip by the round-robin leader. Validators sign the textual block hash; on
// every signature the engine re-verifies all collected approvals against the
// registry and finalizes the block once floor(2k/3)+1 of them verify.
// Proposals may also be rejected administratively, which records the block
// with a REJECTED certificate.
//
// The engine runs every validator in-process: the registry holds each
// validator's private key and Sign is invoked on behalf of an authenticated
// authority. There is no vote transport between nodes.
//
// Each proposal carries its own lock held across the full
// read-verify-write of Sign and Reject, so concurrent signers never lose
// approvals. Once a proposal is finalized it is marked done under that lock
// and a racing caller observes ErrNotFound.
package bft
