package rawdb

import (
	"testing"
	"time"

	"github.com/tos-network/gaudit/common"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/tosdb/memorydb"
)

func makeBlocks(n int) []*types.Block {
	var (
		blocks []*types.Block
		prev   common.Hash
	)
	for i := 0; i < n; i++ {
		tx := types.NewTransaction("alice", "submitter", map[string]interface{}{"stage": "S", "n": i}, time.Unix(int64(i), 0))
		b := types.NewBlock(uint64(i), prev, "validator_1", "S", "", []*types.Transaction{tx}, time.Unix(int64(i), 0))
		prev = b.Hash
		blocks = append(blocks, b)
	}
	return blocks
}

func TestBlockStorage(t *testing.T) {
	db := memorydb.New()
	blocks := makeBlocks(3)

	if _, ok, err := ReadHeadIndex(db); err != nil || ok {
		t.Fatalf("empty database reports head: ok=%v err=%v", ok, err)
	}
	for _, b := range blocks {
		if err := WriteBlock(db, b.Index, b); err != nil {
			t.Fatalf("write block %d: %v", b.Index, err)
		}
	}
	if err := WriteHeadIndex(db, 2); err != nil {
		t.Fatal(err)
	}
	head, ok, err := ReadHeadIndex(db)
	if err != nil || !ok || head != 2 {
		t.Fatalf("head: have %d ok=%v err=%v", head, ok, err)
	}
	got, err := ReadBlock(db, 1)
	if err != nil {
		t.Fatalf("read block: %v", err)
	}
	if got.Hash != blocks[1].Hash || !got.HashValid() {
		t.Fatalf("block 1 mismatch after reload")
	}
	tail, err := ReadBlocks(db, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 2 || tail[0].Index != 1 || tail[1].Index != 2 {
		t.Fatalf("unexpected tail: %d blocks", len(tail))
	}
	if err := DeleteBlock(db, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBlock(db, 1); err == nil {
		t.Fatal("deleted block still readable")
	}
}

func TestSnapshotStorage(t *testing.T) {
	db := memorydb.New()
	if _, _, ok, err := ReadSnapshot(db); ok || err != nil {
		t.Fatalf("empty database has snapshot: ok=%v err=%v", ok, err)
	}
	blocks := makeBlocks(4)
	if err := WriteSnapshot(db, blocks); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	got, head, ok, err := ReadSnapshot(db)
	if err != nil || !ok {
		t.Fatalf("read snapshot: ok=%v err=%v", ok, err)
	}
	if head != 3 || len(got) != 4 {
		t.Fatalf("snapshot head %d with %d blocks", head, len(got))
	}
	for i := range blocks {
		if got[i].Hash != blocks[i].Hash {
			t.Fatalf("block %d hash mismatch", i)
		}
	}
	if err := WriteSnapshot(db, nil); err == nil {
		t.Fatal("empty snapshot accepted")
	}
}

func TestCorruptHeadIndex(t *testing.T) {
	db := memorydb.New()
	db.Put(headIndexKey, []byte{1, 2})
	if _, _, err := ReadHeadIndex(db); err == nil {
		t.Fatal("expected corrupt index error")
	}
}
