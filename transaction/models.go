// Package transaction defines the append-only transaction log kept in
// parallel with the commitment collections. Records are written once per
// lifecycle event and never updated, so the log is the audit trail for
// every commitment mutation, including the value-conservation check the
// ledger records but deliberately does not recompute.
package transaction

import (
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/id"
	"github.com/veilproto/shield/types"
)

// Type classifies one lifecycle event.
type Type string

const (
	TypeMinted      Type = "minted"
	TypeReceived    Type = "received"
	TypeTransferred Type = "transferred"
	TypeBurned      Type = "burned"
	TypeChange      Type = "change"
)

// ForOrigin maps a commitment origin to the record type written for its
// creation event.
func ForOrigin(o commitment.Origin) Type {
	switch o {
	case commitment.OriginReceived:
		return TypeReceived
	case commitment.OriginChange:
		return TypeChange
	default:
		return TypeMinted
	}
}

// ForDisposal maps a disposal flag to the record type written for its
// spend event.
func ForDisposal(f commitment.DisposalFlag) Type {
	if f == commitment.DisposalBurned {
		return TypeBurned
	}
	return TypeTransferred
}

// Input references one consumed commitment with the value it carried, so
// that FT conservation (sum of inputs = transferred + change) is externally
// auditable from the record alone.
type Input struct {
	Hash  string      `json:"commitmentHash"`
	Value types.Value `json:"value"`
}

// Output references one produced commitment. Change outputs stay with the
// spending tenant; non-change outputs are inserted by the recipient tenant
// through its own receive path.
type Output struct {
	Hash      string      `json:"commitmentHash"`
	Value     types.Value `json:"value"`
	Recipient string      `json:"recipient,omitempty"`
	Change    bool        `json:"isChange,omitempty"`
}

// Record is one immutable transaction-log entry.
type Record struct {
	types.Entity

	ID   id.TransactionID `json:"id"`
	Type Type             `json:"type"`
	Kind commitment.Kind  `json:"kind"`

	Inputs  []Input  `json:"inputs,omitempty"`
	Outputs []Output `json:"outputs,omitempty"`

	// Token identity carried through an NFT transfer.
	TokenID  string `json:"tokenID,omitempty"`
	TokenURI string `json:"tokenURI,omitempty"`

	CounterpartyName string `json:"counterpartyName,omitempty"`

	// DedupKey is the caller-deterministic identifier of the logical spend,
	// a digest over the disposal, the consumed set and the primary output
	// hash. Used to recognize retries of the same transfer or burn. Empty
	// for creation events.
	DedupKey string `json:"dedupKey,omitempty"`
}

// InputValue returns the summed value of all consumed commitments.
func (r *Record) InputValue() types.Value {
	var sum types.Value
	for _, in := range r.Inputs {
		sum = sum.Add(in.Value)
	}
	return sum
}

// OutputValue returns the summed value of all produced commitments.
func (r *Record) OutputValue() types.Value {
	var sum types.Value
	for _, out := range r.Outputs {
		sum = sum.Add(out.Value)
	}
	return sum
}

// ConsumesSameSet reports whether the record's inputs are exactly the given
// hash set, order-insensitive. Used to tell a retry of the same logical
// spend apart from an unrelated conflict on a shared dedup key.
func (r *Record) ConsumesSameSet(hashes []string) bool {
	if len(r.Inputs) != len(hashes) {
		return false
	}
	seen := make(map[string]int, len(r.Inputs))
	for _, in := range r.Inputs {
		seen[in.Hash]++
	}
	for _, h := range hashes {
		if seen[h] == 0 {
			return false
		}
		seen[h]--
	}
	return true
}

// Page addresses one page of the transaction log. Both fields are
// 1-based/positive; validation happens in the history service.
type Page struct {
	PageNo int `json:"pageNo"`
	Limit  int `json:"limit"`
}

// ListOpts is the store-level translation of a validated Page.
type ListOpts struct {
	Limit  int
	Offset int
}
