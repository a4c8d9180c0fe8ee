package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/gaudit/common"
)

var testTime = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func testBlock() *Block {
	tx := NewTransaction("alice", "submitter", map[string]interface{}{
		"batch":       "LOT-001",
		"responsible": "maria",
		"stage":       "Harvest",
	}, testTime)
	return NewBlock(1, common.HexToHash("ab"), "validator_2", tx.StageName(), "", []*Transaction{tx}, testTime)
}

func TestBlockHashIgnoresQuorumEvidence(t *testing.T) {
	b := testBlock()
	want := b.Hash

	b.Signatures["validator_1"] = "00ff"
	b.Signatures["validator_2"] = "ff00"
	b.Certificate = &Certificate{Status: StatusAccepted, QRequired: 4, QCollected: 4, ValidatorCount: 5}
	if got := b.Header.Hash(); got != want {
		t.Fatalf("hash changed after adding signatures: have %s want %s", got, want)
	}
	if !b.HashValid() {
		t.Fatal("stored hash no longer matches header")
	}
}

func TestBlockHashCoversHeader(t *testing.T) {
	base := testBlock()
	for name, mutate := range map[string]func(b *Block){
		"index":       func(b *Block) { b.Index++ },
		"prev":        func(b *Block) { b.PreviousHash = common.HexToHash("cd") },
		"timestamp":   func(b *Block) { b.Timestamp = "2024-05-01 10:30:01" },
		"leader":      func(b *Block) { b.Leader = "validator_3" },
		"stage":       func(b *Block) { b.StageName = "Transport" },
		"responsible": func(b *Block) { b.ResponsibleID = "maria" },
		"payload":     func(b *Block) { b.Transactions[0].Payload["batch"] = "LOT-002" },
	} {
		b := base.Copy()
		mutate(b)
		if b.Header.Hash() == base.Hash {
			t.Errorf("%s: header mutation did not change the hash", name)
		}
		if b.HashValid() {
			t.Errorf("%s: mutated block still reports a valid hash", name)
		}
	}
}

func TestBlockHashKeyOrderIndependent(t *testing.T) {
	a := NewTransaction("alice", "submitter", map[string]interface{}{"stage": "S", "batch": "B", "extra": map[string]interface{}{"z": 1, "a": 2}}, testTime)
	b := NewTransaction("alice", "submitter", map[string]interface{}{"extra": map[string]interface{}{"a": 2, "z": 1}, "batch": "B", "stage": "S"}, testTime)
	ba := NewBlock(1, common.Hash{}, "v", "S", "", []*Transaction{a}, testTime)
	bb := NewBlock(1, common.Hash{}, "v", "S", "", []*Transaction{b}, testTime)
	if ba.Hash != bb.Hash {
		t.Fatalf("hash depends on payload insertion order: %s != %s", ba.Hash, bb.Hash)
	}
}

func TestCanonicalJSONSortsStructFields(t *testing.T) {
	h := &Header{Index: 3, Leader: "validator_4", Transactions: []*Transaction{}}
	blob, err := canonicalJSON(h)
	require.NoError(t, err)
	s := string(blob)
	require.True(t, strings.HasPrefix(s, `{"index":3,"leader":"validator_4","previous_hash":"`), s)
	require.NotContains(t, s, " ")
}

func TestBlockJSONReloadKeepsHash(t *testing.T) {
	b := testBlock()
	b.Transactions[0].Payload["quantity"] = json.Number("1000000000000000000000")
	b.ComputeHash()
	b.Signatures["validator_1"] = "aa"
	b.Certificate = &Certificate{Status: StatusPending, QRequired: 4, QCollected: 1, ValidatorCount: 5}

	blob, err := json.Marshal(b)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(blob, &fields))
	for _, key := range []string{"index", "previous_hash", "timestamp", "leader", "stage_name", "transactions", "responsible_id", "hash", "signatures", "certificate"} {
		require.Contains(t, fields, key)
	}

	var loaded Block
	require.NoError(t, json.Unmarshal(blob, &loaded))
	require.Equal(t, b.Hash, loaded.Hash)
	require.True(t, loaded.HashValid(), "reloaded block hash mismatch")
	require.Equal(t, b.Signatures, loaded.Signatures)
	require.Equal(t, *b.Certificate, *loaded.Certificate)
}

func TestBlockCopyIsDeep(t *testing.T) {
	b := testBlock()
	b.Certificate = &Certificate{Status: StatusPending}
	cpy := b.Copy()
	cpy.Signatures["validator_1"] = "x"
	cpy.Certificate.Status = StatusAccepted
	cpy.Transactions[0].Payload["stage"] = "Other"
	if len(b.Signatures) != 0 || b.Certificate.Status != StatusPending || b.Transactions[0].Payload["stage"] != "Harvest" {
		t.Fatal("copy shares state with the original block")
	}
}

func TestTransactionStageDefault(t *testing.T) {
	tx := NewTransaction("alice", "submitter", nil, testTime)
	if tx.StageName() != DefaultStageName {
		t.Fatalf("stage: have %q want %q", tx.StageName(), DefaultStageName)
	}
	payload := map[string]interface{}{"stage": "Packing"}
	tx = NewTransaction("alice", "submitter", payload, testTime)
	payload["stage"] = "Changed"
	if tx.StageName() != "Packing" {
		t.Fatal("transaction payload aliased the caller's map")
	}
	if tx.Timestamp != "2024-05-01 10:30:00" {
		t.Fatalf("timestamp: have %q", tx.Timestamp)
	}
}

func TestTransactionPayloadMatchesReload(t *testing.T) {
	tx := NewTransaction("alice", "submitter", map[string]interface{}{
		"stage":  "Packing",
		"qty":    12,
		"temp":   3.5,
		"tags":   []string{"cold", "organic"},
		"origin": map[string]interface{}{"lat": float64(-33.4)},
	}, testTime)
	require.Equal(t, json.Number("12"), tx.Payload["qty"])
	require.Equal(t, json.Number("3.5"), tx.Payload["temp"])
	require.Equal(t, []interface{}{"cold", "organic"}, tx.Payload["tags"])
	require.Equal(t, map[string]interface{}{"lat": json.Number("-33.4")}, tx.Payload["origin"])

	blob, err := json.Marshal(tx)
	require.NoError(t, err)
	var loaded Transaction
	require.NoError(t, json.Unmarshal(blob, &loaded))
	require.Equal(t, *tx, loaded)
}
