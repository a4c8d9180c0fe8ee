package rawdb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/tosdb"
)

var errCorruptIndex = errors.New("rawdb: corrupt index entry")

func readIndex(db tosdb.KeyValueReader, key []byte) (uint64, bool, error) {
	has, err := db.Has(key)
	if err != nil || !has {
		return 0, false, err
	}
	data, err := db.Get(key)
	if err != nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("%w: %q has %d bytes", errCorruptIndex, key, len(data))
	}
	return binary.BigEndian.Uint64(data), true, nil
}

// ReadHeadIndex retrieves the index of the latest block written. The boolean
// is false for an empty database.
func ReadHeadIndex(db tosdb.KeyValueReader) (uint64, bool, error) {
	return readIndex(db, headIndexKey)
}

// WriteHeadIndex stores the index of the latest block written.
func WriteHeadIndex(db tosdb.KeyValueWriter, index uint64) error {
	return db.Put(headIndexKey, encodeBlockNumber(index))
}

// ReadBlock retrieves the block stored at position index.
func ReadBlock(db tosdb.KeyValueReader, index uint64) (*types.Block, error) {
	data, err := db.Get(blockKey(index))
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", index, err)
	}
	block := new(types.Block)
	if err := json.Unmarshal(data, block); err != nil {
		return nil, fmt.Errorf("block %d: %w", index, err)
	}
	return block, nil
}

// WriteBlock stores a block at position index. For the chain the position is
// the block index; other block logs number their entries sequentially.
func WriteBlock(db tosdb.KeyValueWriter, index uint64, block *types.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}
	return db.Put(blockKey(index), data)
}

// DeleteBlock removes the block stored at index.
func DeleteBlock(db tosdb.KeyValueWriter, index uint64) error {
	return db.Delete(blockKey(index))
}

// ReadBlocks returns every block stored under the block prefix at a position
// of at least from, in ascending order.
func ReadBlocks(db tosdb.Iteratee, from uint64) ([]*types.Block, error) {
	it := db.NewIterator(blockPrefix, encodeBlockNumber(from))
	defer it.Release()

	var blocks []*types.Block
	for it.Next() {
		block := new(types.Block)
		if err := json.Unmarshal(it.Value(), block); err != nil {
			return nil, fmt.Errorf("block key %x: %w", it.Key(), err)
		}
		blocks = append(blocks, block)
	}
	return blocks, it.Error()
}

// ReadSnapshot retrieves the compressed chain snapshot and the position of
// its last block. The boolean is false if no snapshot was written yet.
func ReadSnapshot(db tosdb.KeyValueReader) ([]*types.Block, uint64, bool, error) {
	head, ok, err := readIndex(db, snapshotHeadKey)
	if err != nil || !ok {
		return nil, 0, false, err
	}
	data, err := db.Get(snapshotKey)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, 0, false, fmt.Errorf("snapshot: %w", err)
	}
	var blocks []*types.Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, 0, false, fmt.Errorf("snapshot: %w", err)
	}
	if len(blocks) == 0 || uint64(len(blocks)-1) != head {
		return nil, 0, false, fmt.Errorf("%w: snapshot head %d does not match contents", errCorruptIndex, head)
	}
	return blocks, head, true, nil
}

// WriteSnapshot stores blocks as a snappy compressed document.
func WriteSnapshot(db tosdb.KeyValueWriter, blocks []*types.Block) error {
	if len(blocks) == 0 {
		return errors.New("rawdb: empty snapshot")
	}
	raw, err := json.Marshal(blocks)
	if err != nil {
		return err
	}
	if err := db.Put(snapshotKey, snappy.Encode(nil, raw)); err != nil {
		return err
	}
	return db.Put(snapshotHeadKey, encodeBlockNumber(uint64(len(blocks)-1)))
}

// DeleteSnapshot removes the compressed chain snapshot.
func DeleteSnapshot(db tosdb.KeyValueWriter) error {
	if err := db.Delete(snapshotKey); err != nil {
		return err
	}
	return db.Delete(snapshotHeadKey)
}

// ReadBlockIndices returns the indices of every block stored under the block
// prefix, in ascending order.
func ReadBlockIndices(db tosdb.Iteratee) ([]uint64, error) {
	it := db.NewIterator(blockPrefix, nil)
	defer it.Release()

	var indices []uint64
	for it.Next() {
		key := it.Key()
		if len(key) != len(blockPrefix)+8 {
			continue
		}
		indices = append(indices, binary.BigEndian.Uint64(key[len(blockPrefix):]))
	}
	return indices, it.Error()
}
