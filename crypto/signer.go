package crypto

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcschnorr "github.com/btcsuite/btcd/btcec/v2/schnorr"
)

const (
	SignerTypeEd25519 = "ed25519"
	SignerTypeSchnorr = "schnorr"

	schnorrPrivateKeyLen = 32
)

var (
	ErrUnknownSignerType = errors.New("crypto: unknown signer type")
	ErrInvalidSignerKey  = errors.New("crypto: invalid signer private key")
	ErrInvalidPublicKey  = errors.New("crypto: invalid public key")
)

// CanonicalSignerType normalizes signer type alias to canonical lowercase name.
func CanonicalSignerType(signerType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(signerType)) {
	case "", SignerTypeEd25519:
		return SignerTypeEd25519, nil
	case SignerTypeSchnorr, "bip340", "secp256k1-schnorr":
		return SignerTypeSchnorr, nil
	default:
		return "", ErrUnknownSignerType
	}
}

// PublicKey is the shareable verification half of a validator keypair.
type PublicKey struct {
	Type string
	Data []byte
}

// Hex returns the hex encoding of the raw key bytes.
func (p PublicKey) Hex() string { return hex.EncodeToString(p.Data) }

// Equal reports whether both keys are of the same type and value.
func (p PublicKey) Equal(o PublicKey) bool {
	return p.Type == o.Type && bytes.Equal(p.Data, o.Data)
}

// Signer holds the private half of a validator keypair. A Signer is owned by
// exactly one identity for the lifetime of the process.
type Signer interface {
	// Type returns the canonical signer type name.
	Type() string
	// Public returns the verification key.
	Public() PublicKey
	// Sign signs msg. Schnorr signers sign Keccak256(msg).
	Sign(msg []byte) ([]byte, error)
	// Bytes returns the raw private key, as stored in key files.
	Bytes() []byte
}

// GenerateKey creates a fresh random signer of the given type.
func GenerateKey(signerType string, rand io.Reader) (Signer, error) {
	signerType, err := CanonicalSignerType(signerType)
	if err != nil {
		return nil, err
	}
	switch signerType {
	case SignerTypeSchnorr:
		raw := make([]byte, schnorrPrivateKeyLen)
		if _, err := io.ReadFull(rand, raw); err != nil {
			return nil, err
		}
		return ToSigner(SignerTypeSchnorr, raw)
	default:
		_, priv, err := ed25519.GenerateKey(rand)
		if err != nil {
			return nil, err
		}
		return ed25519Signer{priv: priv}, nil
	}
}

// DeriveKey deterministically derives a signer from seed material. The same
// seed always yields the same keypair, which keeps historical signatures
// verifiable across restarts without key files.
func DeriveKey(signerType string, seed []byte) (Signer, error) {
	return ToSigner(signerType, deriveSeed(signerType, seed))
}

func deriveSeed(signerType string, seed []byte) []byte {
	if t, err := CanonicalSignerType(signerType); err == nil && t == SignerTypeSchnorr {
		return Keccak256([]byte("gaudit-schnorr-key"), seed)
	}
	return Keccak256([]byte("gaudit-ed25519-key"), seed)
}

// ToSigner restores a signer from its raw private key bytes. ed25519 accepts
// either a 32 byte seed or the 64 byte expanded key.
func ToSigner(signerType string, raw []byte) (Signer, error) {
	signerType, err := CanonicalSignerType(signerType)
	if err != nil {
		return nil, err
	}
	switch signerType {
	case SignerTypeSchnorr:
		if len(raw) != schnorrPrivateKeyLen {
			return nil, ErrInvalidSignerKey
		}
		priv, _ := btcec.PrivKeyFromBytes(raw)
		if priv.Key.IsZero() {
			return nil, ErrInvalidSignerKey
		}
		return schnorrSigner{priv: priv}, nil
	default:
		switch len(raw) {
		case ed25519.SeedSize:
			return ed25519Signer{priv: ed25519.NewKeyFromSeed(raw)}, nil
		case ed25519.PrivateKeySize:
			priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
			if !bytes.Equal(priv, raw) {
				return nil, ErrInvalidSignerKey
			}
			return ed25519Signer{priv: priv}, nil
		default:
			return nil, ErrInvalidSignerKey
		}
	}
}

// ParsePublicKey validates raw public key bytes for the given signer type.
func ParsePublicKey(signerType string, raw []byte) (PublicKey, error) {
	signerType, err := CanonicalSignerType(signerType)
	if err != nil {
		return PublicKey{}, err
	}
	switch signerType {
	case SignerTypeSchnorr:
		if _, err := btcschnorr.ParsePubKey(raw); err != nil {
			return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
	default:
		if len(raw) != ed25519.PublicKeySize {
			return PublicKey{}, ErrInvalidPublicKey
		}
	}
	return PublicKey{Type: signerType, Data: append([]byte(nil), raw...)}, nil
}

// Verify checks sig over msg against pub. Malformed keys or signatures verify
// as false. Verification is a pure function of its inputs.
func Verify(pub PublicKey, msg, sig []byte) bool {
	switch pub.Type {
	case SignerTypeEd25519:
		if len(pub.Data) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub.Data), msg, sig)
	case SignerTypeSchnorr:
		key, err := btcschnorr.ParsePubKey(pub.Data)
		if err != nil {
			return false
		}
		parsed, err := btcschnorr.ParseSignature(sig)
		if err != nil {
			return false
		}
		return parsed.Verify(Keccak256(msg), key)
	default:
		return false
	}
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
}

func (s ed25519Signer) Type() string { return SignerTypeEd25519 }

func (s ed25519Signer) Public() PublicKey {
	pub := s.priv.Public().(ed25519.PublicKey)
	return PublicKey{Type: SignerTypeEd25519, Data: append([]byte(nil), pub...)}
}

func (s ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

func (s ed25519Signer) Bytes() []byte { return append([]byte(nil), s.priv.Seed()...) }

type schnorrSigner struct {
	priv *btcec.PrivateKey
}

func (s schnorrSigner) Type() string { return SignerTypeSchnorr }

func (s schnorrSigner) Public() PublicKey {
	return PublicKey{Type: SignerTypeSchnorr, Data: btcschnorr.SerializePubKey(s.priv.PubKey())}
}

func (s schnorrSigner) Sign(msg []byte) ([]byte, error) {
	sig, err := btcschnorr.Sign(s.priv, Keccak256(msg))
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

func (s schnorrSigner) Bytes() []byte { return s.priv.Serialize() }
