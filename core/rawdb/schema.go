// Package rawdb contains the low level accessors of the ledger database.
package rawdb

import "encoding/binary"

// The fields below define the low level database schema prefixing.
var (
	// headIndexKey tracks the position of the latest block written.
	headIndexKey = []byte("H")

	// snapshotKey holds the snappy compressed document of every block up to
	// and including snapshotHeadKey.
	snapshotKey = []byte("S")

	// snapshotHeadKey tracks the position of the last block in the snapshot.
	snapshotHeadKey = []byte("SH")

	// Data item prefixes (use single byte to avoid mixing data types, avoid `i`, used for indexes).
	blockPrefix = []byte("b") // blockPrefix + num (uint64 big endian) -> block json
)

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// blockKey = blockPrefix + num (uint64 big endian)
func blockKey(number uint64) []byte {
	return append(append([]byte{}, blockPrefix...), encodeBlockNumber(number)...)
}
