package core

import "errors"

var (
	// ErrPersistence is returned when the ledger could not be written to or
	// read from its store.
	ErrPersistence = errors.New("core: persistence failure")

	// ErrInvalidLink is returned when a block does not extend the chain tip.
	ErrInvalidLink = errors.New("core: block does not link to the chain tip")

	// ErrChainNotEmpty is returned by Genesis on an initialized chain.
	ErrChainNotEmpty = errors.New("core: chain already initialized")

	// ErrHashMismatch reports a block whose stored hash differs from its header.
	ErrHashMismatch = errors.New("core: block hash does not match header")

	// ErrUnverifiableSignature reports an embedded signature that does not
	// verify against the current registry, either because the signer is
	// unknown or because its key changed since the block was signed.
	ErrUnverifiableSignature = errors.New("core: unverifiable signature")

	// ErrInsufficientSignatures reports an accepted block whose verified
	// signatures fall short of its certificate.
	ErrInsufficientSignatures = errors.New("core: accepted block below quorum")
)
