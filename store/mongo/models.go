package mongo

import (
	"fmt"
	"time"

	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/id"
	"github.com/veilproto/shield/transaction"
	"github.com/veilproto/shield/types"
)

// ==================== Commitment models ====================

// Boolean lifecycle flags serialize with omitempty so an unset flag is an
// absent field: the disposal conditional update matches on $exists false,
// and a partial $set can never clear a flag it did not name.
type commitmentModel struct {
	Hash             string    `bson:"commitmentHash"`
	Index            int64     `bson:"commitmentIndex"`
	Kind             string    `bson:"kind"`
	Value            string    `bson:"value,omitempty"`
	TokenID          string    `bson:"tokenID,omitempty"`
	TokenURI         string    `bson:"tokenURI,omitempty"`
	Salt             string    `bson:"salt"`
	OwnerPublicKey   string    `bson:"ownerPublicKey"`
	Minted           bool      `bson:"isMinted,omitempty"`
	Received         bool      `bson:"isReceived,omitempty"`
	Change           bool      `bson:"isChange,omitempty"`
	Transferred      bool      `bson:"isTransferred,omitempty"`
	Burned           bool      `bson:"isBurned,omitempty"`
	Reconciles       bool      `bson:"commitmentReconciles,omitempty"`
	ExistsOnchain    bool      `bson:"commitmentExistsOnchain,omitempty"`
	CounterpartyName string    `bson:"counterpartyName,omitempty"`
	CreatedAt        time.Time `bson:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

func toCommitmentModel(c *commitment.Commitment) *commitmentModel {
	m := &commitmentModel{
		Hash:             c.Hash,
		Index:            c.Index,
		Kind:             string(c.Kind),
		TokenID:          c.TokenID,
		TokenURI:         c.TokenURI,
		Salt:             c.Salt,
		OwnerPublicKey:   c.OwnerPublicKey,
		Minted:           c.Minted,
		Received:         c.Received,
		Change:           c.Change,
		Transferred:      c.Transferred,
		Burned:           c.Burned,
		Reconciles:       c.Reconciles,
		ExistsOnchain:    c.ExistsOnchain,
		CounterpartyName: c.CounterpartyName,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.Kind == commitment.KindFT {
		m.Value = c.Value.Hex()
	}
	return m
}

func fromCommitmentModel(m *commitmentModel) (*commitment.Commitment, error) {
	c := &commitment.Commitment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Hash:             m.Hash,
		Index:            m.Index,
		Kind:             commitment.Kind(m.Kind),
		TokenID:          m.TokenID,
		TokenURI:         m.TokenURI,
		Salt:             m.Salt,
		OwnerPublicKey:   m.OwnerPublicKey,
		Minted:           m.Minted,
		Received:         m.Received,
		Change:           m.Change,
		Transferred:      m.Transferred,
		Burned:           m.Burned,
		Reconciles:       m.Reconciles,
		ExistsOnchain:    m.ExistsOnchain,
		CounterpartyName: m.CounterpartyName,
	}
	if m.Value != "" {
		v, err := types.ParseValue(m.Value)
		if err != nil {
			return nil, fmt.Errorf("shield/mongo: decode commitment %s value: %w", m.Hash, err)
		}
		c.Value = v
	}
	return c, nil
}

// ==================== Transaction-log models ====================

type inputModel struct {
	Hash  string `bson:"commitmentHash"`
	Value string `bson:"value,omitempty"`
}

type outputModel struct {
	Hash      string `bson:"commitmentHash"`
	Value     string `bson:"value,omitempty"`
	Recipient string `bson:"recipient,omitempty"`
	Change    bool   `bson:"isChange,omitempty"`
}

type recordModel struct {
	ID               string        `bson:"_id"`
	Type             string        `bson:"type"`
	Kind             string        `bson:"kind"`
	Inputs           []inputModel  `bson:"inputs,omitempty"`
	Outputs          []outputModel `bson:"outputs,omitempty"`
	TokenID          string        `bson:"tokenID,omitempty"`
	TokenURI         string        `bson:"tokenURI,omitempty"`
	CounterpartyName string        `bson:"counterpartyName,omitempty"`
	DedupKey         string        `bson:"dedupKey,omitempty"`
	CreatedAt        time.Time     `bson:"createdAt"`
	UpdatedAt        time.Time     `bson:"updatedAt"`
}

func toRecordModel(r *transaction.Record) *recordModel {
	inputs := make([]inputModel, len(r.Inputs))
	for i, in := range r.Inputs {
		inputs[i] = inputModel{Hash: in.Hash, Value: hexOrEmpty(in.Value)}
	}

	outputs := make([]outputModel, len(r.Outputs))
	for i, out := range r.Outputs {
		outputs[i] = outputModel{
			Hash:      out.Hash,
			Value:     hexOrEmpty(out.Value),
			Recipient: out.Recipient,
			Change:    out.Change,
		}
	}

	return &recordModel{
		ID:               r.ID.String(),
		Type:             string(r.Type),
		Kind:             string(r.Kind),
		Inputs:           inputs,
		Outputs:          outputs,
		TokenID:          r.TokenID,
		TokenURI:         r.TokenURI,
		CounterpartyName: r.CounterpartyName,
		DedupKey:         r.DedupKey,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func fromRecordModel(m *recordModel) (*transaction.Record, error) {
	recID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("shield/mongo: decode record id %q: %w", m.ID, err)
	}

	inputs := make([]transaction.Input, len(m.Inputs))
	for i, in := range m.Inputs {
		v, err := parseOptionalValue(in.Value)
		if err != nil {
			return nil, fmt.Errorf("shield/mongo: decode record %s input: %w", m.ID, err)
		}
		inputs[i] = transaction.Input{Hash: in.Hash, Value: v}
	}

	outputs := make([]transaction.Output, len(m.Outputs))
	for i, out := range m.Outputs {
		v, err := parseOptionalValue(out.Value)
		if err != nil {
			return nil, fmt.Errorf("shield/mongo: decode record %s output: %w", m.ID, err)
		}
		outputs[i] = transaction.Output{
			Hash:      out.Hash,
			Value:     v,
			Recipient: out.Recipient,
			Change:    out.Change,
		}
	}

	return &transaction.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               recID,
		Type:             transaction.Type(m.Type),
		Kind:             commitment.Kind(m.Kind),
		Inputs:           inputs,
		Outputs:          outputs,
		TokenID:          m.TokenID,
		TokenURI:         m.TokenURI,
		CounterpartyName: m.CounterpartyName,
		DedupKey:         m.DedupKey,
	}, nil
}

func parseOptionalValue(s string) (types.Value, error) {
	if s == "" {
		return types.ZeroValue(), nil
	}
	return types.ParseValue(s)
}

// hexOrEmpty serializes a value for an omitempty field: zero quantities
// (NFT inputs and outputs) stay absent instead of persisting "0x0".
func hexOrEmpty(v types.Value) string {
	if v.IsZero() {
		return ""
	}
	return v.Hex()
}

// ==================== Account models ====================

type accountModel struct {
	ID                 string    `bson:"_id"`
	Name               string    `bson:"name"`
	Credential         string    `bson:"credential"`
	PublicKey          string    `bson:"publicKey"`
	SecretKey          string    `bson:"secretKey"`
	FTShieldContracts  []string  `bson:"ftShieldContracts,omitempty"`
	NFTShieldContracts []string  `bson:"nftShieldContracts,omitempty"`
	CreatedAt          time.Time `bson:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:                 a.ID.String(),
		Name:               a.Name,
		Credential:         a.Credential,
		PublicKey:          a.PublicKey,
		SecretKey:          a.SecretKey,
		FTShieldContracts:  a.FTShieldContracts,
		NFTShieldContracts: a.NFTShieldContracts,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	acctID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("shield/mongo: decode account id %q: %w", m.ID, err)
	}

	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 acctID,
		Name:               m.Name,
		Credential:         m.Credential,
		PublicKey:          m.PublicKey,
		SecretKey:          m.SecretKey,
		FTShieldContracts:  m.FTShieldContracts,
		NFTShieldContracts: m.NFTShieldContracts,
	}, nil
}
