package validator

import (
	"fmt"

	"github.com/tos-network/gaudit/crypto"
)

// Registry is the ordered, immutable set of validator identities plus the
// auxiliary non-validator nodes. It is safe for concurrent use since it is
// never modified after construction.
type Registry struct {
	validators []*Validator
	nodes      []*Validator
	byID       map[string]*Validator
}

// NewRegistry builds a registry. The order of validators fixes leader
// rotation. Every entry of validators is marked as validator and every entry
// of nodes as non-validator.
func NewRegistry(validators, nodes []*Validator) (*Registry, error) {
	if len(validators) == 0 {
		return nil, ErrNoValidators
	}
	r := &Registry{
		validators: make([]*Validator, 0, len(validators)),
		nodes:      make([]*Validator, 0, len(nodes)),
		byID:       make(map[string]*Validator, len(validators)+len(nodes)),
	}
	for _, v := range validators {
		if _, ok := r.byID[v.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, v.ID)
		}
		v.IsValidator = true
		r.validators = append(r.validators, v)
		r.byID[v.ID] = v
	}
	for _, n := range nodes {
		if _, ok := r.byID[n.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		n.IsValidator = false
		r.nodes = append(r.nodes, n)
		r.byID[n.ID] = n
	}
	return r, nil
}

// Size returns k, the number of validators.
func (r *Registry) Size() int { return len(r.validators) }

// Threshold returns q for this registry.
func (r *Registry) Threshold() int { return Threshold(len(r.validators)) }

// Leader returns the validator responsible for proposing at index, rotating
// round-robin over the registry order.
func (r *Registry) Leader(index uint64) *Validator {
	return r.validators[index%uint64(len(r.validators))]
}

// Validator returns the validator with the given id. Non-validator nodes
// are not returned.
func (r *Registry) Validator(id string) (*Validator, bool) {
	v, ok := r.byID[id]
	if !ok || !v.IsValidator {
		return nil, false
	}
	return v, true
}

// Identity returns any registered identity, validator or not.
func (r *Registry) Identity(id string) (*Validator, bool) {
	v, ok := r.byID[id]
	return v, ok
}

// PublicKey returns the verification key of validator id.
func (r *Registry) PublicKey(id string) (crypto.PublicKey, bool) {
	v, ok := r.Validator(id)
	if !ok {
		return crypto.PublicKey{}, false
	}
	return v.PublicKey, true
}

// Validators returns the validators in rotation order.
func (r *Registry) Validators() []*Validator {
	return append([]*Validator(nil), r.validators...)
}

// Nodes returns the non-validator identities.
func (r *Registry) Nodes() []*Validator {
	return append([]*Validator(nil), r.nodes...)
}

// IDs returns the validator ids in rotation order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.validators))
	for i, v := range r.validators {
		ids[i] = v.ID
	}
	return ids
}
