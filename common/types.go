// Package common contains various helper types shared by the ledger packages.
package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// HashLength is the expected length of a block digest.
const HashLength = 32

var errInvalidHashLength = errors.New("common: invalid hash length")

// Hash represents the 32 byte Keccak256 digest of a block header.
//
// The text form is 64 lowercase hex characters without a 0x prefix, which is
// the representation stored in the ledger document and signed by validators.
type Hash [HashLength]byte

// BytesToHash sets b to hash.
// If b is larger than len(h), b will be cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash sets byte representation of s to hash.
// If b is larger than len(h), b will be cropped from the left. Invalid hex
// yields the zero hash; use ParseHash when the input is untrusted.
func HexToHash(s string) Hash { return BytesToHash(FromHex(s)) }

// FromHex returns the bytes represented by the hexadecimal string s.
// s may be prefixed with "0x" and may have an odd length.
func FromHex(s string) []byte {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

// ParseHash decodes a 64 character hex string, with or without 0x prefix.
func ParseHash(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*HashLength {
		return Hash{}, fmt.Errorf("%w: %d hex characters", errInvalidHashLength, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b), nil
}

// Bytes gets the byte representation of the underlying hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the lowercase hex encoding of the hash, without prefix.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

// TerminalString implements log.TerminalStringer, formatting a string for console
// output during logging.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[29:])
}

// String implements the stringer interface and is used also by the logger when
// doing full logging into a file.
func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

// SetBytes sets the hash to the value of b.
// If b is larger than len(h), b will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// MarshalText returns the hex representation of h.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	parsed, err := ParseHash(string(input))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
