package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimeLayout is the wall-clock format used for block and transaction
// timestamps in the ledger document.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultStageName is used when a transaction payload carries no stage.
const DefaultStageName = "Stage"

// FormatTime renders t in the ledger timestamp format.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Transaction is a single audit event submitted by an authorized actor.
// It is embedded verbatim into exactly one block and never modified after
// construction.
type Transaction struct {
	Sender               string                 `json:"sender"`
	ActorType            string                 `json:"actor_type"`
	Payload              map[string]interface{} `json:"payload"`
	Timestamp            string                 `json:"timestamp"`
	ResponsibleID        string                 `json:"responsible_id"`
	ResponsibleSignature string                 `json:"responsible_signature"`
}

// NewTransaction creates a transaction stamped with now. The payload is
// copied so later changes by the caller do not leak into the ledger, and
// holds the values a reload of the ledger document yields: numbers become
// json.Number and slices []interface{}.
func NewTransaction(sender, actorType string, payload map[string]interface{}, now time.Time) *Transaction {
	return &Transaction{
		Sender:    sender,
		ActorType: actorType,
		Payload:   normalizePayload(payload),
		Timestamp: FormatTime(now),
	}
}

// WithResponsible returns a copy of tx carrying the responsible party fields.
func (tx *Transaction) WithResponsible(id, signature string) *Transaction {
	cpy := tx.Copy()
	cpy.ResponsibleID = id
	cpy.ResponsibleSignature = signature
	return cpy
}

// StageName returns the stage label carried in the payload.
func (tx *Transaction) StageName() string {
	if s, ok := tx.Payload["stage"].(string); ok && s != "" {
		return s
	}
	return DefaultStageName
}

// Copy returns a deep copy of the transaction.
func (tx *Transaction) Copy() *Transaction {
	cpy := *tx
	cpy.Payload = copyMap(tx.Payload)
	return &cpy
}

// UnmarshalJSON decodes numbers in the payload as json.Number so that a
// reloaded transaction hashes exactly like the one that was stored.
func (tx *Transaction) UnmarshalJSON(input []byte) error {
	type plain Transaction
	var dec plain
	d := json.NewDecoder(bytes.NewReader(input))
	d.UseNumber()
	if err := d.Decode(&dec); err != nil {
		return err
	}
	*tx = Transaction(dec)
	return nil
}

// normalizePayload round-trips m through JSON. Payloads that cannot be
// encoded are copied as they are and fail later when the block is hashed.
func normalizePayload(m map[string]interface{}) map[string]interface{} {
	raw, err := json.Marshal(m)
	if err != nil {
		return copyMap(m)
	}
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	var out map[string]interface{}
	if err := d.Decode(&out); err != nil || out == nil {
		return copyMap(m)
	}
	return out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	cpy := make(map[string]interface{}, len(m))
	for k, v := range m {
		cpy[k] = copyValue(v)
	}
	return cpy
}

func copyValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return copyMap(v)
	case []interface{}:
		cpy := make([]interface{}, len(v))
		for i, e := range v {
			cpy[i] = copyValue(e)
		}
		return cpy
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}
