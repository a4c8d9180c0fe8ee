package types

import (
	"encoding/json"
	"time"

	"github.com/tos-network/gaudit/common"
	"github.com/tos-network/gaudit/crypto"
)

// Header holds the block fields covered by the block hash.
type Header struct {
	Index         uint64         `json:"index"`
	PreviousHash  common.Hash    `json:"previous_hash"`
	Timestamp     string         `json:"timestamp"`
	Leader        string         `json:"leader"`
	StageName     string         `json:"stage_name"`
	Transactions  []*Transaction `json:"transactions"`
	ResponsibleID string         `json:"responsible_id"`
}

// Hash returns the Keccak256 digest of the canonical header serialization.
func (h *Header) Hash() common.Hash {
	txs := h.Transactions
	if txs == nil {
		txs = []*Transaction{}
	}
	enc := *h
	enc.Transactions = txs
	blob, err := canonicalJSON(&enc)
	if err != nil {
		// Headers only hold strings, integers and decoded JSON values.
		panic("types: header not serializable: " + err.Error())
	}
	return crypto.Keccak256Hash(blob)
}

// Block is a ledger entry: an immutable header plus the mutable quorum
// evidence collected for it.
type Block struct {
	Header

	Signatures  map[string]string `json:"signatures"`
	Certificate *Certificate      `json:"certificate"`
	Hash        common.Hash       `json:"hash"`
}

// NewBlock builds a block at index on top of prev, carrying a snapshot of the
// given transactions, and computes its hash.
func NewBlock(index uint64, prev common.Hash, leader, stage, responsible string, txs []*Transaction, now time.Time) *Block {
	snap := make([]*Transaction, len(txs))
	for i, tx := range txs {
		snap[i] = tx.Copy()
	}
	b := &Block{
		Header: Header{
			Index:         index,
			PreviousHash:  prev,
			Timestamp:     FormatTime(now),
			Leader:        leader,
			StageName:     stage,
			Transactions:  snap,
			ResponsibleID: responsible,
		},
		Signatures: make(map[string]string),
	}
	b.ComputeHash()
	return b
}

// ComputeHash derives the block hash from the header and stores it.
func (b *Block) ComputeHash() common.Hash {
	b.Hash = b.Header.Hash()
	return b.Hash
}

// HashValid reports whether the stored hash matches the header.
func (b *Block) HashValid() bool {
	return b.Header.Hash() == b.Hash
}

// SigningPayload is the message validators sign: the textual block hash.
func (b *Block) SigningPayload() []byte {
	return []byte(b.Hash.Hex())
}

// Status returns the certificate status or the empty string.
func (b *Block) Status() string {
	if b.Certificate == nil {
		return ""
	}
	return b.Certificate.Status
}

// Signers returns the ids of the validators that signed the block.
func (b *Block) Signers() []string {
	ids := make([]string, 0, len(b.Signatures))
	for id := range b.Signatures {
		ids = append(ids, id)
	}
	return ids
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() *Block {
	cpy := &Block{
		Header:      b.Header,
		Signatures:  make(map[string]string, len(b.Signatures)),
		Certificate: b.Certificate.Copy(),
		Hash:        b.Hash,
	}
	cpy.Transactions = make([]*Transaction, len(b.Transactions))
	for i, tx := range b.Transactions {
		cpy.Transactions[i] = tx.Copy()
	}
	for id, sig := range b.Signatures {
		cpy.Signatures[id] = sig
	}
	return cpy
}

// blockJSON is the persisted record layout.
type blockJSON struct {
	Index         uint64            `json:"index"`
	PreviousHash  common.Hash       `json:"previous_hash"`
	Timestamp     string            `json:"timestamp"`
	Leader        string            `json:"leader"`
	StageName     string            `json:"stage_name"`
	Transactions  []*Transaction    `json:"transactions"`
	ResponsibleID string            `json:"responsible_id"`
	Hash          common.Hash       `json:"hash"`
	Signatures    map[string]string `json:"signatures"`
	Certificate   *Certificate      `json:"certificate"`
}

func (b *Block) MarshalJSON() ([]byte, error) {
	enc := blockJSON{
		Index:         b.Index,
		PreviousHash:  b.PreviousHash,
		Timestamp:     b.Timestamp,
		Leader:        b.Leader,
		StageName:     b.StageName,
		Transactions:  b.Transactions,
		ResponsibleID: b.ResponsibleID,
		Hash:          b.Hash,
		Signatures:    b.Signatures,
		Certificate:   b.Certificate,
	}
	if enc.Transactions == nil {
		enc.Transactions = []*Transaction{}
	}
	if enc.Signatures == nil {
		enc.Signatures = map[string]string{}
	}
	if enc.Certificate == nil {
		enc.Certificate = &Certificate{}
	}
	return json.Marshal(&enc)
}

func (b *Block) UnmarshalJSON(input []byte) error {
	var dec blockJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	b.Header = Header{
		Index:         dec.Index,
		PreviousHash:  dec.PreviousHash,
		Timestamp:     dec.Timestamp,
		Leader:        dec.Leader,
		StageName:     dec.StageName,
		Transactions:  dec.Transactions,
		ResponsibleID: dec.ResponsibleID,
	}
	if b.Transactions == nil {
		b.Transactions = []*Transaction{}
	}
	b.Hash = dec.Hash
	b.Signatures = dec.Signatures
	if b.Signatures == nil {
		b.Signatures = make(map[string]string)
	}
	b.Certificate = dec.Certificate
	return nil
}
