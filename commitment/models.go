// Package commitment defines the shielded token commitment model.
//
// A commitment is the opaque on-chain stand-in for one shielded token unit,
// fungible or non-fungible. It can be spent exactly once: it enters the
// ledger through exactly one origin (minted locally, received from a
// counterparty, or produced as change) and leaves through at most one
// disposal (transferred or burned). It is never deleted.
package commitment

import (
	"fmt"

	"github.com/veilproto/shield/types"
)

// Kind distinguishes fungible from non-fungible commitments. Each kind has
// its own commitment and transaction collections within a tenant.
type Kind string

const (
	KindFT  Kind = "ft"
	KindNFT Kind = "nft"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == KindFT || k == KindNFT }

// Origin marks how a commitment came into existence.
type Origin string

const (
	OriginMinted   Origin = "minted"
	OriginReceived Origin = "received"
	OriginChange   Origin = "change"
)

// DisposalFlag marks a commitment as spent. The values are the literal
// stored field names so the flag doubles as the partial-update key.
type DisposalFlag string

const (
	DisposalTransferred DisposalFlag = "isTransferred"
	DisposalBurned      DisposalFlag = "isBurned"
)

// Valid reports whether f is a known disposal flag.
func (f DisposalFlag) Valid() bool {
	return f == DisposalTransferred || f == DisposalBurned
}

// Commitment represents one shielded token unit.
//
// Once created a commitment is immutable except for exactly one disposal
// transition and the two reconciliation flags; both are applied as partial
// field updates so concurrent writers cannot clobber each other's fields.
type Commitment struct {
	types.Entity

	// Hash is the cryptographic commitment value, unique within a tenant.
	Hash string `json:"commitmentHash"`

	// Index is the leaf position assigned by the external Merkle tree.
	// Supplied by the caller at insert time and immutable afterwards.
	Index int64 `json:"commitmentIndex"`

	Kind Kind `json:"kind"`

	// Value is the fungible quantity. Zero for NFTs.
	Value types.Value `json:"value"`

	// TokenID and TokenURI identify a non-fungible token. Empty for FTs.
	TokenID  string `json:"tokenID,omitempty"`
	TokenURI string `json:"tokenURI,omitempty"`

	Salt           string `json:"salt"`
	OwnerPublicKey string `json:"ownerPublicKey"`

	// Origin flags: at most one is set at creation.
	Minted   bool `json:"isMinted,omitempty"`
	Received bool `json:"isReceived,omitempty"`
	Change   bool `json:"isChange,omitempty"`

	// Disposal flags: at most one may later be set, exactly once.
	Transferred bool `json:"isTransferred,omitempty"`
	Burned      bool `json:"isBurned,omitempty"`

	// Reconciliation flags, set asynchronously after external verification.
	Reconciles    bool `json:"commitmentReconciles,omitempty"`
	ExistsOnchain bool `json:"commitmentExistsOnchain,omitempty"`

	// CounterpartyName names the sending tenant for received commitments.
	CounterpartyName string `json:"counterpartyName,omitempty"`
}

// Origin returns the commitment's origin, or "" if no origin flag is set.
func (c *Commitment) Origin() Origin {
	switch {
	case c.Minted:
		return OriginMinted
	case c.Received:
		return OriginReceived
	case c.Change:
		return OriginChange
	default:
		return ""
	}
}

// SetOrigin clears all origin flags and sets the one for o.
func (c *Commitment) SetOrigin(o Origin) {
	c.Minted = o == OriginMinted
	c.Received = o == OriginReceived
	c.Change = o == OriginChange
}

// Spent reports whether a disposal flag is set.
func (c *Commitment) Spent() bool { return c.Transferred || c.Burned }

// Validate checks the structural invariants of a commitment about to be
// created: a hash, an owner, exactly one origin flag, no disposal flags,
// and kind-appropriate value/token fields.
func (c *Commitment) Validate() error {
	if c.Hash == "" {
		return fmt.Errorf("commitment: missing hash")
	}
	if c.OwnerPublicKey == "" {
		return fmt.Errorf("commitment %s: missing owner public key", c.Hash)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("commitment %s: invalid kind %q", c.Hash, c.Kind)
	}

	origins := 0
	for _, set := range []bool{c.Minted, c.Received, c.Change} {
		if set {
			origins++
		}
	}
	if origins != 1 {
		return fmt.Errorf("commitment %s: exactly one origin flag required, got %d", c.Hash, origins)
	}
	if c.Spent() {
		return fmt.Errorf("commitment %s: disposal flag set at creation", c.Hash)
	}

	switch c.Kind {
	case KindFT:
		if c.TokenID != "" || c.TokenURI != "" {
			return fmt.Errorf("commitment %s: token identity on a fungible commitment", c.Hash)
		}
	case KindNFT:
		if c.TokenID == "" {
			return fmt.Errorf("commitment %s: missing token id", c.Hash)
		}
		if !c.Value.IsZero() {
			return fmt.Errorf("commitment %s: value on a non-fungible commitment", c.Hash)
		}
	}

	return nil
}

// ReconciliationPatch is a partial update of the two reconciliation flags.
// Nil fields are left untouched; last writer wins on the rest, which is
// acceptable because reconciliation checks re-derive the same truth.
type ReconciliationPatch struct {
	Reconciles    *bool `json:"commitmentReconciles,omitempty"`
	ExistsOnchain *bool `json:"commitmentExistsOnchain,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p ReconciliationPatch) Empty() bool {
	return p.Reconciles == nil && p.ExistsOnchain == nil
}

// ListOpts controls unspent-commitment queries. The zero value lists
// everything, newest first.
type ListOpts struct {
	Limit  int
	Offset int
}
