package validator

import (
	"crypto/rand"
	"fmt"

	"github.com/tos-network/gaudit/accounts/keystore"
	"github.com/tos-network/gaudit/crypto"
	"github.com/tos-network/gaudit/log"
)

// Config describes the identities created at startup.
type Config struct {
	Validators int    // k
	ExtraNodes int    // identities with keys that never take part in quorum
	SignerType string // "ed25519" or "schnorr"
	// KeyDir, when set, persists keys so signatures stay verifiable across
	// restarts. Takes precedence over KeySeed.
	KeyDir string
	// KeySeed derives keys deterministically from a shared secret.
	KeySeed string
}

// ValidatorID returns the identity of the n-th (1-based) validator.
func ValidatorID(n int) string { return fmt.Sprintf("validator_%d", n) }

// NodeID returns the identity of the n-th (1-based) non-validator node.
func NodeID(n int) string { return fmt.Sprintf("node_%d", n) }

// Setup creates the registry described by cfg.
func Setup(cfg Config) (*Registry, error) {
	if cfg.Validators <= 0 {
		return nil, ErrNoValidators
	}
	signerType, err := crypto.CanonicalSignerType(cfg.SignerType)
	if err != nil {
		return nil, err
	}
	var (
		ks     *keystore.KeyStore
		source = "ephemeral"
	)
	switch {
	case cfg.KeyDir != "":
		ks = keystore.NewKeyStore(cfg.KeyDir)
		source = "keystore"
	case cfg.KeySeed != "":
		source = "seed"
	}
	keyFor := func(id string) (crypto.Signer, error) {
		switch {
		case ks != nil:
			key, err := ks.LoadOrCreate(id, signerType, rand.Reader)
			if err != nil {
				return nil, err
			}
			return key.Signer, nil
		case cfg.KeySeed != "":
			return crypto.DeriveKey(signerType, []byte(cfg.KeySeed+"|"+id))
		default:
			return crypto.GenerateKey(signerType, rand.Reader)
		}
	}
	validators := make([]*Validator, 0, cfg.Validators)
	for i := 1; i <= cfg.Validators; i++ {
		id := ValidatorID(i)
		signer, err := keyFor(id)
		if err != nil {
			return nil, fmt.Errorf("key for %s: %w", id, err)
		}
		v, err := New(id, true, fmt.Sprintf("cert-validator-%d", i), signer)
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}
	nodes := make([]*Validator, 0, cfg.ExtraNodes)
	for i := 1; i <= cfg.ExtraNodes; i++ {
		id := NodeID(i)
		signer, err := keyFor(id)
		if err != nil {
			return nil, fmt.Errorf("key for %s: %w", id, err)
		}
		n, err := New(id, false, fmt.Sprintf("cert-node-%d", i), signer)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	r, err := NewRegistry(validators, nodes)
	if err != nil {
		return nil, err
	}
	if source == "ephemeral" {
		log.Warn("Validator keys are ephemeral, historical signatures will not verify after restart", "validators", cfg.Validators)
	}
	log.Info("Validator registry ready", "validators", r.Size(), "nodes", len(nodes), "quorum", r.Threshold(), "signer", signerType, "keys", source)
	return r, nil
}
