// Package validator implements the fixed validator registry, round-robin
// leader selection and the quorum threshold.
package validator

import (
	"errors"
	"fmt"

	"github.com/tos-network/gaudit/crypto"
)

// Sentinel errors returned by registry construction.
var (
	ErrNoValidators = errors.New("validator: at least one validator is required")
	ErrDuplicateID  = errors.New("validator: duplicate identity")
	ErrMissingKey   = errors.New("validator: identity has no signing key")
)

// Validator is a named identity with a signing keypair. Only identities with
// IsValidator set take part in leader rotation and quorum.
type Validator struct {
	ID          string
	IsValidator bool
	// Certificate is a descriptive label, e.g. "cert-validator-1".
	Certificate string
	PublicKey   crypto.PublicKey

	signer crypto.Signer
}

// New binds id to signer.
func New(id string, isValidator bool, certificate string, signer crypto.Signer) (*Validator, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, id)
	}
	return &Validator{
		ID:          id,
		IsValidator: isValidator,
		Certificate: certificate,
		PublicKey:   signer.Public(),
		signer:      signer,
	}, nil
}

// Sign signs msg with the identity's private key.
func (v *Validator) Sign(msg []byte) ([]byte, error) {
	return v.signer.Sign(msg)
}

// Verify checks sig over msg against the identity's public key.
func (v *Validator) Verify(msg, sig []byte) bool {
	return crypto.Verify(v.PublicKey, msg, sig)
}

// PublicHex returns the hex encoded public key.
func (v *Validator) PublicHex() string { return v.PublicKey.Hex() }

// Threshold returns the number of verified signatures needed to accept a
// block among k validators: floor(2k/3)+1.
func Threshold(k int) int {
	if k <= 0 {
		return 1
	}
	return (2*k)/3 + 1
}
