package publish

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/pithecene-io/lighthouse/cache"
)

func TestBuildManifest(t *testing.T) {
	m := BuildManifest([]ManifestEntry{
		{TransactionID: "txA", Path: "a.png"},
		{TransactionID: "txB", Path: "b.png"},
	})

	data, err := m.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"manifest": "arweave/paths",
		"version":  "0.1.0",
		"index":    map[string]any{"path": "-1"},
		"paths": map[string]any{
			"a.png": map[string]any{"id": "txA"},
			"b.png": map[string]any{"id": "txB"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("manifest = %v\nwant %v", got, want)
	}
}

func TestBuildManifest_LastWriteWins(t *testing.T) {
	m := BuildManifest([]ManifestEntry{
		{TransactionID: "old", Path: "a.png"},
		{TransactionID: "new", Path: "a.png"},
	})
	if len(m.Paths) != 1 || m.Paths["a.png"].ID != "new" {
		t.Errorf("paths = %v", m.Paths)
	}
}

func TestBuildManifest_Empty(t *testing.T) {
	data, err := BuildManifest(nil).Bytes()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"manifest":"arweave/paths","version":"0.1.0","index":{"path":"-1"},"paths":{}}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestManifestEntries(t *testing.T) {
	got := ManifestEntries([]cache.Entry{{Name: "1", TxID: "t1"}, {Name: "2", TxID: "t2"}})
	want := []ManifestEntry{{TransactionID: "t1", Path: "1"}, {TransactionID: "t2", Path: "2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTransactionFactory_ForManifest(t *testing.T) {
	net := newFakeNetwork()
	f := NewTransactionFactory(net, nil)

	tx, err := f.ForManifest(context.Background(), BuildManifest([]ManifestEntry{{TransactionID: "t", Path: "p"}}))
	if err != nil {
		t.Fatalf("ForManifest: %v", err)
	}
	if v, _ := tx.TagValue("Type"); v != "manifest" {
		t.Errorf("Type = %q", v)
	}
	if v, _ := tx.TagValue("Content-Type"); v != "application/x.arweave-manifest+json" {
		t.Errorf("Content-Type = %q", v)
	}
	if _, ok := tx.TagValue("File-Hash"); ok {
		t.Error("manifest should not carry File-Hash")
	}
}

func TestTransactionFactory_BuildError(t *testing.T) {
	net := newFakeNetwork()
	net.createErr = errors.New("malformed credential")
	f := NewTransactionFactory(net, nil)

	_, err := f.ForBlob(context.Background(), []byte("x"), "image/png")
	var buildErr *TransactionBuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("err = %v, want *TransactionBuildError", err)
	}
	if buildErr.Kind != "file" || !errors.Is(err, net.createErr) {
		t.Errorf("err = %+v", buildErr)
	}
}
