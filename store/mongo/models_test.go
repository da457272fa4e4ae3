package mongo

import (
	"testing"

	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/id"
	"github.com/veilproto/shield/transaction"
	"github.com/veilproto/shield/types"
)

func TestRecordModelOmitsZeroValues(t *testing.T) {
	rec := &transaction.Record{
		Entity: types.NewEntity(),
		ID:     id.NewTransactionID(),
		Type:   transaction.TypeTransferred,
		Kind:   commitment.KindNFT,
		Inputs: []transaction.Input{
			{Hash: "n1"},
		},
		Outputs: []transaction.Output{
			{Hash: "n2", Recipient: "bob"},
		},
		TokenID:  "token-42",
		DedupKey: "k1",
	}

	m := toRecordModel(rec)
	if m.Inputs[0].Value != "" {
		t.Errorf("nft input value: got %q, want empty", m.Inputs[0].Value)
	}
	if m.Outputs[0].Value != "" {
		t.Errorf("nft output value: got %q, want empty", m.Outputs[0].Value)
	}

	back, err := fromRecordModel(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.Inputs[0].Value.IsZero() {
		t.Errorf("round-trip input value: got %s, want zero", back.Inputs[0].Value)
	}
	if back.Outputs[0].Recipient != "bob" {
		t.Errorf("round-trip recipient: got %q", back.Outputs[0].Recipient)
	}
}

func TestRecordModelKeepsFungibleValues(t *testing.T) {
	rec := &transaction.Record{
		Entity: types.NewEntity(),
		ID:     id.NewTransactionID(),
		Type:   transaction.TypeTransferred,
		Kind:   commitment.KindFT,
		Inputs: []transaction.Input{
			{Hash: "in1", Value: types.NewValue(5)},
		},
		Outputs: []transaction.Output{
			{Hash: "out1", Value: types.NewValue(3), Recipient: "bob"},
			{Hash: "chg1", Value: types.NewValue(2), Change: true},
		},
		DedupKey: "k2",
	}

	m := toRecordModel(rec)
	if m.Inputs[0].Value != "0x5" {
		t.Errorf("ft input value: got %q, want 0x5", m.Inputs[0].Value)
	}

	back, err := fromRecordModel(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Inputs[0].Value.Uint64() != 5 {
		t.Errorf("round-trip input value: got %d, want 5", back.Inputs[0].Value.Uint64())
	}
	if !back.Outputs[1].Change {
		t.Error("round-trip change flag lost")
	}
}
