package arweave

import (
	"math/big"
	"testing"
)

func TestTransaction_SignAndVerify(t *testing.T) {
	w := NewWallet(sharedTestKey(t))
	tx := NewTransaction([]byte(`{"name":"x"}`), w.Owner(), "anchor_AAAA", big.NewInt(1234))
	tx.AddTag("Content-Type", "application/json")

	if err := tx.Sign(w); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(tx.ID) != 43 {
		t.Errorf("id length = %d, want 43", len(tx.ID))
	}
	if err := tx.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// Tags are covered by the signature.
	tx.AddTag("Extra", "1")
	if err := tx.Verify(); err == nil {
		t.Error("Verify must fail after tags change")
	}
}

func TestTransaction_SignRejectsForeignOwner(t *testing.T) {
	w := NewWallet(sharedTestKey(t))
	tx := NewTransaction([]byte("x"), "AQAB", "", big.NewInt(1))
	if err := tx.Sign(w); err == nil {
		t.Fatal("expected owner mismatch error")
	}
}

func TestNewTransaction_Fields(t *testing.T) {
	tx := NewTransaction([]byte("hello"), "AQAB", "anc", big.NewInt(99))
	if tx.Format != 2 || tx.DataSize != "5" || tx.Reward != "99" || tx.Quantity != "0" {
		t.Errorf("unexpected fields: %+v", tx)
	}
	if tx.DataRoot == "" {
		t.Error("data root must be set for non-empty data")
	}
	if tx.ChunkCount() != 1 {
		t.Errorf("ChunkCount() = %d, want 1", tx.ChunkCount())
	}

	empty := NewTransaction(nil, "AQAB", "anc", big.NewInt(0))
	if empty.DataRoot != "" || empty.ChunkCount() != 0 {
		t.Error("empty data must have no root and no chunks")
	}
}

func TestTagValue(t *testing.T) {
	tx := &Transaction{}
	tx.AddTag("Type", "file")
	if v, ok := tx.TagValue("Type"); !ok || v != "file" {
		t.Errorf("TagValue = %q, %v", v, ok)
	}
	if _, ok := tx.TagValue("Missing"); ok {
		t.Error("missing tag reported present")
	}
}

func TestWinstonToAR(t *testing.T) {
	tests := []struct {
		winston string
		want    string
	}{
		{"0", "0"},
		{"1", "0.000000000001"},
		{"1500000000000", "1.5"},
		{"2000000000000", "2"},
		{"123456789012345678", "123456.789012345678"},
	}
	for _, tt := range tests {
		w, _ := new(big.Int).SetString(tt.winston, 10)
		if got := WinstonToAR(w); got != tt.want {
			t.Errorf("WinstonToAR(%s) = %q, want %q", tt.winston, got, tt.want)
		}
	}
}
